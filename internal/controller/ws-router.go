package controller

import (
	"github.com/sharetube/partysync/pkg/wsrouter"
)

func (c *controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())
	mux.SetErrorHandler(c.handleWSError)

	// presence
	wsrouter.Handle(mux, "registerUser", c.handleRegisterUser)
	wsrouter.Handle(mux, "userConnected", c.handleRegisterUser)
	wsrouter.Handle(mux, "joinPost", c.handleJoinPost)
	wsrouter.Handle(mux, "leavePost", c.handleLeavePost)

	// watch room
	wsrouter.Handle(mux, "joinWatchRoom", c.handleJoinWatchRoom)
	wsrouter.Handle(mux, "leaveWatchRoom", c.handleLeaveWatchRoom)
	wsrouter.Handle(mux, "watchChatMessage", c.handleWatchChatMessage)

	// playback
	wsrouter.Handle(mux, "watchPlay", c.handleWatchPlay)
	wsrouter.Handle(mux, "watchPause", c.handleWatchPause)

	// queue
	wsrouter.Handle(mux, "addVideoToQueue", c.handleAddVideoToQueue)
	wsrouter.Handle(mux, "skipVideo", c.handleSkipVideo)
	wsrouter.Handle(mux, "removeFromQueue", c.handleRemoveFromQueue)

	// direct messages
	wsrouter.Handle(mux, "privateMessage", c.handlePrivateMessage)
	wsrouter.Handle(mux, "typing", c.handleTyping)
	wsrouter.Handle(mux, "stopTyping", c.handleStopTyping)
	wsrouter.Handle(mux, "messageRead", c.handleMessageRead)

	return mux
}
