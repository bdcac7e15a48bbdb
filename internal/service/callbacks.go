package service

import (
	"context"

	"troublebot-backend/pkg/logger"

	"github.com/cloudwego/eino/callbacks"
	einoModel "github.com/cloudwego/eino/components/model"
)

// newLogCallback logs node lifecycle events. With detail on, model token
// usage is logged as well.
func newLogCallback(detail bool) callbacks.Handler {
	return callbacks.NewHandlerBuilder().
		OnStartFn(func(ctx context.Context, info *callbacks.RunInfo, input callbacks.CallbackInput) context.Context {
			logger.WithFields(map[string]interface{}{
				"node":      info.Name,
				"component": info.Component,
			}).Debug("node start")
			return ctx
		}).
		OnEndFn(func(ctx context.Context, info *callbacks.RunInfo, output callbacks.CallbackOutput) context.Context {
			fields := map[string]interface{}{
				"node":      info.Name,
				"component": info.Component,
			}
			if detail {
				if out := einoModel.ConvCallbackOutput(output); out != nil && out.TokenUsage != nil {
					fields["prompt_tokens"] = out.TokenUsage.PromptTokens
					fields["completion_tokens"] = out.TokenUsage.CompletionTokens
				}
			}
			logger.WithFields(fields).Debug("node end")
			return ctx
		}).
		OnErrorFn(func(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
			logger.WithFields(map[string]interface{}{
				"node":      info.Name,
				"component": info.Component,
			}).Errorf("node failed: %v", err)
			return ctx
		}).
		Build()
}
