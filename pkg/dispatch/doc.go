// Package dispatch is the only package in this module that imports
// github.com/emiago/sipgo directly. It terminates inbound SIP
// requests, decides whether an INVITE is an ordinary call or a
// file-transfer publishFile offer, and implements the
// callmgr.SipTransport and filetransfer.InfoTransport capability
// interfaces on top of a single sipgo UserAgent/Server/Client triple.
//
// Grounded in pkg/dialog/stack.go (UA/Server/Client construction,
// setupHandlers' On<Method> registration) and pkg/dialog/handlers.go
// (the handleIncoming* family this package's handlers are modeled on)
// and pkg/dialog/dialog_internal.go's buildRequest (From/To/CSeq/Route
// header construction for in-dialog requests).
package dispatch
