// Package host connects external hosts to a bridge editor.
//
// Inbound calls arrive as JSON objects {"id":..,"method":..,"params":{..}}
// and are mapped onto the editor's control surface by a Dispatcher. Each
// call is answered with a reply frame on the connection it arrived on;
// replies are not outbound protocol events and never pass through the
// transport adapter's channel selection.
//
// Two servers are provided: StdioServer reads newline-delimited calls from
// a stream, and WSServer accepts WebSocket connections. ContentWatcher
// reloads the buffer silently when a content file changes on disk.
package host
