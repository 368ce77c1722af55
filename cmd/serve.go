package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/patrimoine-app/patrimoine/internal/decision"
	"github.com/patrimoine-app/patrimoine/internal/export"
	"github.com/patrimoine-app/patrimoine/internal/market"
	"github.com/patrimoine-app/patrimoine/internal/model"
	"github.com/patrimoine-app/patrimoine/internal/profile"
	"github.com/patrimoine-app/patrimoine/internal/scoring"
	"github.com/patrimoine-app/patrimoine/internal/store"
	"github.com/patrimoine-app/patrimoine/internal/strategy"
	"github.com/patrimoine-app/patrimoine/internal/valuation"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the portfolio HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		var prices valuation.PriceSource
		if cfg.Market.BaseURL != "" {
			prices = market.NewClient(cfg.Market, st)
		}

		resolver := profile.NewResolver(st)
		engine := decision.NewEngine(st, resolver, prices)
		resolver.RegisterInvalidator(engine)

		api := &apiServer{
			store:    st,
			resolver: resolver,
			engine:   engine,
			prices:   prices,
		}

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           api.routes(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			srv.Shutdown(shutdownCtx) //nolint:errcheck
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

type apiServer struct {
	store    store.Store
	resolver *profile.Resolver
	engine   *decision.Engine
	prices   valuation.PriceSource
}

func (s *apiServer) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/profile/score", s.handleScore)
		r.Post("/strategy/classify", s.handleClassify)

		r.Route("/users/{userID}", func(r chi.Router) {
			r.Get("/strategy", s.handleGetStrategy)
			r.Put("/strategy/thresholds", s.handlePutThresholds)
			r.Post("/strategy/reset", s.handleResetStrategy)

			r.Get("/holdings", s.handleListHoldings)
			r.Get("/valuation", s.handleValuation)
			r.Get("/decisions", s.handleDecisions)
			r.Post("/decisions/refresh", s.handleRefreshDecisions)
			r.Get("/snapshots", s.handleSnapshots)
			r.Get("/export", s.handleExport)
		})
	})

	return r
}

func (s *apiServer) handleScore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID  string                  `json:"user_id"`
		Answers model.OnboardingAnswers `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result := scoring.Score(req.Answers)

	if req.UserID != "" {
		now := time.Now().UTC()
		if err := s.store.SaveProfile(r.Context(), profileFromAnswers(req.UserID, &req.Answers, now)); err != nil {
			serverError(w, "save profile", err)
			return
		}
		if err := s.store.SaveRiskScores(r.Context(), req.UserID, result, now); err != nil {
			serverError(w, "save risk scores", err)
			return
		}
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleClassify(w http.ResponseWriter, r *http.Request) {
	var sig model.OnboardingSignals
	if err := json.NewDecoder(r.Body).Decode(&sig); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	writeJSON(w, http.StatusOK, strategy.Classify(sig))
}

func (s *apiServer) handleGetStrategy(w http.ResponseWriter, r *http.Request) {
	result, err := s.resolver.Strategy(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		serverError(w, "resolve strategy", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handlePutThresholds(w http.ResponseWriter, r *http.Request) {
	var patch model.ThresholdPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	userID := chi.URLParam(r, "userID")
	if err := s.resolver.SaveThresholds(r.Context(), userID, patch); err != nil {
		if errors.Is(err, profile.ErrAuthRequired) {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		serverError(w, "save thresholds", err)
		return
	}

	result, err := s.resolver.Strategy(r.Context(), userID)
	if err != nil {
		serverError(w, "resolve strategy", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleResetStrategy(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := s.resolver.ResetToDefaults(r.Context(), userID); err != nil {
		if errors.Is(err, profile.ErrAuthRequired) {
			writeError(w, http.StatusUnauthorized, "authentication required")
			return
		}
		serverError(w, "reset thresholds", err)
		return
	}

	result, err := s.resolver.Strategy(r.Context(), userID)
	if err != nil {
		serverError(w, "resolve strategy", err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *apiServer) handleListHoldings(w http.ResponseWriter, r *http.Request) {
	holdings, err := s.store.ListHoldings(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		serverError(w, "list holdings", err)
		return
	}
	writeJSON(w, http.StatusOK, holdings)
}

func (s *apiServer) handleValuation(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	holdings, err := s.store.ListHoldings(r.Context(), userID)
	if err != nil {
		serverError(w, "list holdings", err)
		return
	}
	accounts, err := s.store.ListAccounts(r.Context(), userID)
	if err != nil {
		serverError(w, "list accounts", err)
		return
	}

	v, err := valuation.Compute(r.Context(), holdings, accounts, s.prices)
	if err != nil {
		serverError(w, "compute valuation", err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func (s *apiServer) handleDecisions(w http.ResponseWriter, r *http.Request) {
	decisions, err := s.store.ListDecisions(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		serverError(w, "list decisions", err)
		return
	}
	writeJSON(w, http.StatusOK, decisions)
}

func (s *apiServer) handleRefreshDecisions(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	if err := s.engine.Refresh(r.Context(), userID); err != nil {
		serverError(w, "refresh decisions", err)
		return
	}
	decisions, err := s.store.ListDecisions(r.Context(), userID)
	if err != nil {
		serverError(w, "list decisions", err)
		return
	}
	writeJSON(w, http.StatusOK, decisions)
}

func (s *apiServer) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	snapshots, err := s.store.ListSnapshots(r.Context(), chi.URLParam(r, "userID"), 0)
	if err != nil {
		serverError(w, "list snapshots", err)
		return
	}
	writeJSON(w, http.StatusOK, snapshots)
}

func (s *apiServer) handleExport(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="portfolio.xlsx"`)
	if err := export.NewExporter(s.store).WriteWorkbook(r.Context(), userID, w); err != nil {
		zap.L().Error("export failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func serverError(w http.ResponseWriter, op string, err error) {
	zap.L().Error(op, zap.Error(err))
	writeError(w, http.StatusInternalServerError, op+" failed")
}
