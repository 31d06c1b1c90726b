// Package observers logs model, prompt and node lifecycle events of the routing graph.
package observers

import (
	einocb "github.com/cloudwego/eino/callbacks"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"
)

// NewAllCallbacks aggregates the model and prompt handlers into one callbacks.Handler.
func NewAllCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()
}

// Handlers returns every observer, ready for compose.WithCallbacks.
func Handlers() []einocb.Handler {
	return []einocb.Handler{NewAllCallbacks(), NewNodeCallbacks()}
}
