package main

import (
	"context"
	"log"
	"strings"
	"time"

	"pantry-backend/infrastructure/config"
	"pantry-backend/infrastructure/di"
	"pantry-backend/interfaces/http/rest"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	chiadapter "github.com/awslabs/aws-lambda-go-api-proxy/chi"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

var (
	// chiLambda wraps the chi router for API Gateway integration
	chiLambda *chiadapter.ChiLambdaV2

	// container holds the dependency injection container
	container *di.Container

	// coldStart tracks whether this is a cold start invocation
	coldStart = true

	// coldStartTime records when the cold start began
	coldStartTime time.Time
)

// init runs during cold start
func init() {
	coldStartTime = time.Now()
	log.Println("Lambda cold start initiated")

	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err = di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	router, err := rest.NewRouter(
		container.CommandBus,
		container.QueryBus,
		container.RateLimiter,
		container.Metrics,
		cfg,
		container.Logger,
	)
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	chiRouter, ok := router.Setup().(*chi.Mux)
	if !ok {
		log.Fatal("Failed to cast handler to chi.Mux")
	}
	chiLambda = chiadapter.NewV2(chiRouter)

	log.Printf("Lambda cold start completed in %v", time.Since(coldStartTime))
}

// Handler proxies API Gateway events through the chi router. When the
// gateway's JWT authorizer has already validated the caller, the verified
// claims are forwarded as trusted headers so the token is not re-parsed
// in process.
func Handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	forwardAuthorizerClaims(&req)

	resp, err := chiLambda.ProxyWithContextV2(ctx, req)

	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	if coldStart {
		resp.Headers["X-Cold-Start"] = "true"
		resp.Headers["X-Cold-Start-Duration"] = time.Since(coldStartTime).String()
		coldStart = false
	}
	if req.RequestContext.RequestID != "" {
		resp.Headers["X-Request-ID"] = req.RequestContext.RequestID
	}

	if resp.StatusCode >= 500 {
		container.Logger.Error("Lambda error response",
			zap.String("method", req.RequestContext.HTTP.Method),
			zap.String("path", req.RequestContext.HTTP.Path),
			zap.Int("status_code", resp.StatusCode),
			zap.String("body", resp.Body),
		)
	}

	return resp, err
}

// forwardAuthorizerClaims rewrites gateway authorizer output into the
// trusted header set the authentication middleware accepts inside Lambda.
func forwardAuthorizerClaims(req *events.APIGatewayV2HTTPRequest) {
	authorizer := req.RequestContext.Authorizer
	if authorizer == nil || authorizer.JWT == nil || len(authorizer.JWT.Claims) == 0 {
		return
	}
	claims := authorizer.JWT.Claims

	userID := claims["uid"]
	if userID == "" {
		userID = claims["sub"]
	}
	if userID == "" {
		return
	}

	if req.Headers == nil {
		req.Headers = make(map[string]string)
	}
	req.Headers["X-API-Gateway-Authorized"] = "true"
	req.Headers["X-User-ID"] = userID
	if email := claims["email"]; email != "" {
		req.Headers["X-User-Email"] = email
	}
	if roles := normalizeRolesClaim(claims["roles"]); roles != "" {
		req.Headers["X-User-Roles"] = roles
	}

	// The raw token has served its purpose at the gateway.
	delete(req.Headers, "authorization")
	delete(req.Headers, "Authorization")
}

// normalizeRolesClaim turns the authorizer's rendering of an array claim
// ("[editor admin]", "editor,admin" or a bare value) into a comma list
func normalizeRolesClaim(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "[")
	raw = strings.TrimSuffix(raw, "]")
	if raw == "" {
		return ""
	}
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ' ' || r == ','
	})
	return strings.Join(fields, ",")
}

// main is the entry point for the Lambda function
func main() {
	lambda.Start(Handler)
}
