package app

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/searchktools/chat-server/chat"
	"github.com/searchktools/chat-server/core/http"
	"github.com/searchktools/chat-server/core/metrics"
	"github.com/searchktools/chat-server/core/router"
)

// Routes builds the route table: the chat API plus metrics exposition
func Routes() *router.Builder {
	return router.NewBuilder().
		Register(http.MethodPost, "/chats", createChat).
		Register(http.MethodGet, "/chats", listChats).
		Register(http.MethodPost, "/chats/:chatId/messages", postMessage).
		Register(http.MethodGet, "/chats/:chatId/messages", listMessages).
		Register(http.MethodGet, "/metrics", serveMetrics)
}

// createChat handles POST /chats
func createChat(svc *chat.Service, _ router.Params, _ router.Values, req *http.Request) *http.Response {
	var c chat.Chat
	if err := json.Unmarshal(req.Body, &c); err != nil {
		return http.ServerError(fmt.Sprintf("unable to parse json: %v", err))
	}
	if err := svc.AddChat(c); err != nil {
		return http.Text(http.StatusBadRequest, fmt.Sprintf("unable to add chat: %v", err))
	}
	return http.OK()
}

// listChats handles GET /chats?userId=N
func listChats(svc *chat.Service, _ router.Params, query router.Values, _ *http.Request) *http.Response {
	if query == nil {
		return http.NotFound()
	}
	raw, ok := query["userId"]
	if !ok {
		return http.NotFound()
	}
	userID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return http.ServerError(fmt.Sprintf("unable to parse userId from query string: %v", err))
	}

	body, err := json.Marshal(svc.UserChats(userID))
	if err != nil {
		return http.ServerError(fmt.Sprintf("unable to serialize chats: %v", err))
	}
	return http.JSON(http.StatusOK, body)
}

// postMessage handles POST /chats/:chatId/messages
func postMessage(svc *chat.Service, params router.Params, _ router.Values, req *http.Request) *http.Response {
	chatID, err := strconv.ParseUint(params["chatId"], 10, 64)
	if err != nil {
		return http.ServerError(fmt.Sprintf("unable to parse chat id: %v", err))
	}

	var m chat.Message
	if err := json.Unmarshal(req.Body, &m); err != nil {
		return http.ServerError(fmt.Sprintf("unable to parse json: %v", err))
	}

	if err := svc.SendMessage(chatID, m); err != nil {
		return http.NotFound()
	}
	return http.OK()
}

// listMessages handles GET /chats/:chatId/messages
func listMessages(svc *chat.Service, params router.Params, _ router.Values, _ *http.Request) *http.Response {
	chatID, err := strconv.ParseUint(params["chatId"], 10, 64)
	if err != nil {
		return http.ServerError(fmt.Sprintf("unable to parse chat id: %v", err))
	}

	messages, err := svc.Messages(chatID)
	if err != nil {
		return http.ServerError(fmt.Sprintf("unable to get messages: %v", err))
	}

	body, err := json.Marshal(messages)
	if err != nil {
		return http.ServerError(fmt.Sprintf("unable to serialize messages: %v", err))
	}
	return http.JSON(http.StatusOK, body)
}

// serveMetrics handles GET /metrics
func serveMetrics(_ *chat.Service, _ router.Params, _ router.Values, _ *http.Request) *http.Response {
	body, err := metrics.Render()
	if err != nil {
		return http.ServerError(fmt.Sprintf("unable to render metrics: %v", err))
	}
	return http.NewResponse(http.StatusOK, metrics.ContentType, body)
}
