package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/google/uuid"

	"github.com/rahi-platform/rahi-assistant/cmd/mainconfig"
	"github.com/rahi-platform/rahi-assistant/internal/app/bootstrap"
	appconfig "github.com/rahi-platform/rahi-assistant/internal/config"
	"github.com/rahi-platform/rahi-assistant/internal/conversation"
	"github.com/rahi-platform/rahi-assistant/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat}).Component("chat-lambda")

	// Warm invocations reuse the pipeline and its cached selection.
	pipeline, err := bootstrap.BuildPipeline(cfg, bootstrap.Deps{
		Logger:  logger,
		LoadAWS: mainconfig.LoadAWSConfig,
	})
	if err != nil {
		log.Fatalf("build pipeline: %v", err)
	}

	lambda.Start(func(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		return handle(ctx, pipeline.Orchestrator, logger, evt)
	})
}

func handle(ctx context.Context, responder conversation.DetailedResponder, logger *logging.Logger, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	switch path {
	case "/health", "/_health":
		if method != http.MethodGet && method != http.MethodHead {
			return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed}, nil
		}
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusOK, Body: "ok"}, nil
	case "/chat":
	default:
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusNotFound}, nil
	}

	if method != http.MethodPost {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusMethodNotAllowed}, nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "invalid body"}, nil
	}

	var req conversation.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		logger.Error("failed to decode chat request", "error", err)
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "Invalid request body"}, nil
	}
	if req.Message == nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusBadRequest, Body: "message is required"}, nil
	}

	reply := responder.RespondDetailed(ctx, *req.Message)
	payload, err := json.Marshal(conversation.ChatResponse{
		Reply:          reply.Text,
		Success:        true,
		ConversationID: uuid.NewString(),
		Provider:       reply.Source,
	})
	if err != nil {
		return events.APIGatewayV2HTTPResponse{StatusCode: http.StatusInternalServerError}, nil
	}
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusOK,
		Body:       string(payload),
		Headers:    map[string]string{"content-type": "application/json"},
	}, nil
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}
