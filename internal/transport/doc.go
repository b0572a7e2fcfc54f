// Package transport delivers outbound bridge messages to the host shell.
//
// A host exposes one of several mutually exclusive message channels. The
// Adapter probes its channels in priority order on every send and posts the
// encoded message to the first channel that reports itself available. When
// no channel is present the send is dropped silently.
//
// Delivery is fire-and-forget: there is no acknowledgement, no retry and no
// fallthrough to a lower-priority channel when a post fails.
//
// Basic usage:
//
//	adapter := transport.NewAdapter(
//	    []transport.Channel{handlerCh, postMessageCh, streamCh},
//	    transport.WithLogger(logger),
//	)
//	adapter.Send(transport.EventFocus, nil)
package transport
