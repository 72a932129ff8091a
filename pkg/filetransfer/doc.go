// Package filetransfer implements the Lync file-transfer sub-protocol:
// an XML request/notify control plane multiplexed with a
// length-prefixed binary data plane over a single ICE-negotiated
// "data" stream created by pkg/callmgr. It is grounded in
// pkg/dialog/refer.go and pkg/dialog/refer_sub.go — the closest
// analogue of a secondary control protocol (REFER/NOTIFY
// subscription) layered on top of an established dialog — for the
// request/response/notify correlation idiom, and in pkg/media's
// stream read/write callback shape for the binary framing reader.
package filetransfer
