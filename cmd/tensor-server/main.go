// cmd/tensor-server/main.go: HTTP tool server for gotensor
//
// Exposes the gotensor tools as an HTTP endpoint for agent frameworks and
// scripts.
//
// Usage:
//
//	tensor-server serve --port 8080 --config gotensor.yaml
//	echo '{"tool":"tool_spec"}' | tensor-server call
//
// Tool call endpoint: POST /tool
// Schema endpoint:    GET  /schema
// Health endpoint:    GET  /health
// Metrics endpoint:   GET  /metrics
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"

	"github.com/njchilds90/gotensor"
)

const maxBodyBytes = 1 << 20 // 1 MiB

var (
	configPath string
	port       int
)

var rootCmd = &cobra.Command{
	Use:   "tensor-server",
	Short: "Tensor canonicalization tools over HTTP",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the tool endpoint",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		return serve(eng)
	},
}

var callCmd = &cobra.Command{
	Use:   "call",
	Short: "Run one tool request read from stdin",
	RunE: func(cmd *cobra.Command, args []string) error {
		eng, err := newEngine()
		if err != nil {
			return err
		}
		var req gotensor.ToolRequest
		if err := json.NewDecoder(cmd.InOrStdin()).Decode(&req); err != nil {
			return fmt.Errorf("decode request: %w", err)
		}
		resp := eng.HandleToolCall(cmd.Context(), req)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(resp); err != nil {
			return err
		}
		if resp.Error != "" {
			return errors.New(resp.Error)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML or JSON config file")
	serveCmd.Flags().IntVar(&port, "port", 8080, "Port to listen on")
	rootCmd.AddCommand(serveCmd, callCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newEngine() (*gotensor.Engine, error) {
	cfg := gotensor.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = gotensor.LoadConfig(configPath); err != nil {
			return nil, err
		}
	}
	return gotensor.NewEngine(cfg, gotensor.WithTracerProvider(otel.GetTracerProvider()))
}

func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

func newRouter(eng *gotensor.Engine) *gin.Engine {
	log := eng.Logger()
	r := gin.New()
	r.Use(gin.Recovery(), requestID(), otelgin.Middleware("tensor-server"))

	// POST /tool: handle a tool call
	r.POST("/tool", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodyBytes)
		dec := json.NewDecoder(c.Request.Body)
		dec.DisallowUnknownFields()

		var req gotensor.ToolRequest
		if err := dec.Decode(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if dec.More() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON: trailing data"})
			return
		}
		resp := eng.HandleToolCall(c.Request.Context(), req)
		log.Debug("tool call", "tool", req.Tool, "request_id", c.GetString("request_id"), "error", resp.Error)
		c.JSON(http.StatusOK, resp)
	})

	// GET /schema: tool schema for agent registration
	r.GET("/schema", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/json", []byte(gotensor.ToolSpec()))
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(eng.Registry(), promhttp.HandlerOpts{})))
	return r
}

func serve(eng *gotensor.Engine) error {
	log := eng.Logger()
	gin.SetMode(gin.ReleaseMode)
	r := newRouter(eng)

	addr := fmt.Sprintf(":%d", port)
	log.Info("gotensor tool server listening", "addr", addr)

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server stopped", "err", err)
		return err
	}
	return nil
}
