// Package service is the boundary between transports and the session relay.
//
// Core exposes each operation as a method returning a *types.Result; errors
// and panics are converted into failure results. TerminalProvider and
// ChatProvider publish the same operations as tools in a Registry so frame
// based transports can dispatch by name:
//
//	core := service.NewCore(sessions, relay, metrics, log)
//	reg := service.NewRegistry()
//	reg.Register(service.NewTerminalProvider(core))
//	reg.Register(service.NewChatProvider(core))
//	res, err := reg.Execute(ctx, "terminal.create", map[string]interface{}{"id": "t1"})
package service
