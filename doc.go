/*
Package chat-server is a single-threaded chat HTTP server built directly
on a readiness-based I/O multiplexer.

One reactor thread owns the listening socket and every accepted
connection. Readiness events from epoll (Linux) or kqueue (macOS) drive
non-blocking accepts, reads and writes; a pipelined HTTP/1.1-subset
parser decodes whole batches of requests out of each connection's fixed
read buffer, and a per-method routing trie dispatches them to the chat
service. There are no goroutines per connection, no locks in the hot
path, and the only blocking call is the multiplexer wait.

Quick Start

Run the server with an optional listen address (default 127.0.0.1:80):

	chat-server 127.0.0.1:8080

A contacts.json file in the working directory provides the read-only
contact directory, a JSON object of user id to contact ids:

	{"58534": [74827], "74827": [58534]}

The API:

	POST /chats                     create a chat between two contacts
	GET  /chats?userId=N            list a user's chats
	POST /chats/:chatId/messages    append a message to a chat
	GET  /chats/:chatId/messages    read a chat's log, newest first
	GET  /metrics                   Prometheus text exposition

Modules

  - app: application lifecycle and route registration
  - config: command-line configuration
  - chat: chat store, message logs, contact directory
  - core: reactor event loop
  - core/http: wire parser, request/response types
  - core/router: per-method routing tries and dispatch
  - core/poller: I/O multiplexing (epoll/kqueue)
  - core/pools: buffer and connection object pooling
  - core/metrics: Prometheus collectors and exposition
*/
package chatserver
