package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lanelm/lanelm/api"
	"github.com/lanelm/lanelm/dataset"
	"github.com/lanelm/lanelm/decode"
	"github.com/lanelm/lanelm/sample"
	"github.com/lanelm/lanelm/tokenizer"
	"github.com/lanelm/lanelm/types/errtypes"
	"github.com/lanelm/lanelm/version"
)

type Config struct {
	Dataset   dataset.Config
	Sampling  sample.Options
	Separator string
	Origins   []string
}

// Server serves generation from one model. Every generate request runs in
// its own decode session so requests never share recurrent state.
type Server struct {
	model     decode.Model
	tokenizer *tokenizer.Character
	config    Config

	registry *prometheus.Registry
	metrics  *metrics
}

func New(m decode.Model, tok *tokenizer.Character, cfg Config) *Server {
	registry := prometheus.NewRegistry()
	return &Server{
		model:     m,
		tokenizer: tok,
		config:    cfg,
		registry:  registry,
		metrics:   newMetrics(registry),
	}
}

func statusFor(err error) int {
	if errtypes.IsUserError(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func (s *Server) samplerFor(opts *api.Options) (sample.Sampler, error) {
	o := s.config.Sampling
	if opts != nil {
		if opts.Temperature != nil {
			o.Temperature = *opts.Temperature
		}
		if opts.TopK != nil {
			o.TopK = *opts.TopK
		}
		if opts.TopP != nil {
			o.TopP = *opts.TopP
		}
		if opts.MinP != nil {
			o.MinP = *opts.MinP
		}
		if opts.RandomSeed != nil {
			o.Seed = opts.RandomSeed
		}
	}
	return sample.New(o)
}

func (s *Server) GenerateHandler(c *gin.Context) {
	var req api.GenerateRequest
	if err := c.ShouldBindJSON(&req); errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing request body"})
		return
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fail := func(code int, err error) {
		s.metrics.generateRequests.WithLabelValues("error").Inc()
		c.AbortWithStatusJSON(code, gin.H{"error": err.Error()})
	}

	sampler, err := s.samplerFor(req.Options)
	if err != nil {
		fail(statusFor(err), err)
		return
	}

	if req.Steps < 0 {
		fail(http.StatusBadRequest, fmt.Errorf("%w: negative step count %d", errtypes.ErrInvalidInput, req.Steps))
		return
	}

	seed := s.tokenizer.Encode(req.Seed)
	if len(seed) == 0 {
		fail(http.StatusBadRequest, errtypes.ErrEmptySeed)
		return
	}

	id := uuid.NewString()
	seedText := s.tokenizer.Decode(seed)
	ctx := c.Request.Context()
	start := time.Now()

	final := func(tokens []int32, err error) (any, int) {
		s.metrics.generateDuration.Observe(time.Since(start).Seconds())
		if err != nil {
			s.metrics.generateRequests.WithLabelValues("error").Inc()
			slog.Error("generate failed", "session", id, "error", err)
			return gin.H{"error": err.Error()}, statusFor(err)
		}

		s.metrics.generateRequests.WithLabelValues("success").Inc()
		return api.GenerateResponse{
			SessionID:     id,
			Seed:          seedText,
			Done:          true,
			Tokens:        tokens,
			TotalDuration: time.Since(start),
		}, http.StatusOK
	}

	if req.Stream != nil && !*req.Stream {
		tokens, err := decode.Generate(ctx, s.model, sampler, seed, req.Steps,
			decode.WithSessionID(id),
			decode.WithTokenCallback(func(int32) error {
				s.metrics.generatedTokens.Inc()
				return nil
			}))

		resp, code := final(tokens, err)
		if r, ok := resp.(api.GenerateResponse); ok {
			r.Response = s.tokenizer.Decode(tokens)
			resp = r
		}
		c.JSON(code, resp)
		return
	}

	ch := make(chan any)
	go func() {
		defer close(ch)
		first := true
		tokens, err := decode.Generate(ctx, s.model, sampler, seed, req.Steps,
			decode.WithSessionID(id),
			decode.WithTokenCallback(func(tok int32) error {
				s.metrics.generatedTokens.Inc()
				resp := api.GenerateResponse{SessionID: id, Response: s.tokenizer.Decode([]int32{tok})}
				if first {
					resp.Seed = seedText
					first = false
				}
				select {
				case ch <- resp:
					return nil
				case <-ctx.Done():
					return ctx.Err()
				}
			}))

		resp, _ := final(tokens, err)
		select {
		case ch <- resp:
		case <-ctx.Done():
		}
	}()

	streamResponse(c, ch)
}

func (s *Server) PrepareHandler(c *gin.Context) {
	var req api.PrepareRequest
	if err := c.ShouldBindJSON(&req); errors.Is(err, io.EOF) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "missing request body"})
		return
	} else if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sep := s.config.Separator
	if req.Separator != nil {
		sep = *req.Separator
	}

	chunks := tokenizer.Chunks(req.Text, sep)
	tok := tokenizer.Fit(chunks)
	p, err := dataset.Prepare(c.Request.Context(), s.config.Dataset, tok.EncodeAll(chunks))
	if err != nil {
		c.AbortWithStatusJSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	s.metrics.prepareExamples.Add(float64(p.Examples))
	c.JSON(http.StatusOK, api.PrepareResponse{
		Sequences:         len(chunks),
		VocabularySize:    tok.VocabularySize(),
		SequenceLength:    p.Config.SequenceLength,
		LaneCount:         p.Config.LaneCount,
		BatchWidth:        p.Config.Width(),
		Examples:          p.Examples,
		Dropped:           p.Dropped,
		TrainBatches:      p.Train.Len(),
		ValidationBatches: p.Validation.Len(),
	})
}

func streamResponse(c *gin.Context, ch chan any) {
	c.Header("Content-Type", "application/x-ndjson")
	c.Stream(func(w io.Writer) bool {
		val, ok := <-ch
		if !ok {
			return false
		}

		bts, err := json.Marshal(val)
		if err != nil {
			slog.Info(fmt.Sprintf("streamResponse: json.Marshal failed with %s", err))
			return false
		}

		// Delineate chunks with new-line delimiter
		bts = append(bts, '\n')
		if _, err := w.Write(bts); err != nil {
			slog.Info(fmt.Sprintf("streamResponse: w.Write failed with %s", err))
			return false
		}

		return true
	})
}

func (s *Server) GenerateRoutes() http.Handler {
	config := cors.DefaultConfig()
	config.AllowWildcard = true
	config.AllowBrowserExtensions = true
	config.AllowHeaders = []string{"Authorization", "Content-Type", "User-Agent", "Accept", "X-Requested-With"}
	config.AllowOrigins = s.config.Origins

	r := gin.Default()
	r.Use(cors.New(config))

	r.POST("/api/generate", s.GenerateHandler)
	r.POST("/api/prepare", s.PrepareHandler)
	r.GET("/api/version", func(c *gin.Context) {
		c.JSON(http.StatusOK, api.VersionResponse{Version: version.Version})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{})))

	return r
}

// Serve runs the HTTP server on ln until SIGINT or SIGTERM.
func Serve(ln net.Listener, s *Server) error {
	srvr := &http.Server{
		Handler: s.GenerateRoutes(),
	}

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	defer func() {
		signal.Stop(signals)
		close(signals)
	}()

	go func() {
		if _, ok := <-signals; ok {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srvr.Shutdown(ctx); err != nil {
				slog.Error("shutdown", "error", err)
			}
		}
	}()

	slog.Info(fmt.Sprintf("Listening on %s (version %s)", ln.Addr(), version.Version))
	if err := srvr.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
