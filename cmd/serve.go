package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/coverage-planner/internal/coverage"
	"github.com/sells-group/coverage-planner/internal/loader"
	"github.com/sells-group/coverage-planner/internal/mclp"
	"github.com/sells-group/coverage-planner/internal/milp"
	"github.com/sells-group/coverage-planner/internal/model"
	"github.com/sells-group/coverage-planner/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve solve requests and saved plans over HTTP",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		backend, err := solverBackend(cfg.Solver)
		if err != nil {
			return err
		}

		mux := newServeMux(ctx, st, backend, solverOptions(cfg.Solver), mclp.Params{TieBreak: cfg.Solver.TieBreak})

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: mux,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			srv.Shutdown(ctx)
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

// newServeMux builds the HTTP surface. Solves run asynchronously; the
// response carries the plan ID the result will be saved under.
func newServeMux(ctx context.Context, st store.Store, backend milp.Backend, opts milp.Options, params mclp.Params) *http.ServeMux {
	mux := http.NewServeMux()

	// Each accepted solve launches a solver process; cap the intake rate.
	limiter := rate.NewLimiter(rate.Limit(1), 4)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	mux.HandleFunc("POST /solve", func(w http.ResponseWriter, r *http.Request) {
		if !limiter.Allow() {
			http.Error(w, `{"error":"too many solve requests"}`, http.StatusTooManyRequests)
			return
		}

		raw, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, `{"error":"read request body"}`, http.StatusBadRequest)
			return
		}

		inst, err := loader.ParseJSON(raw, "request")
		if err != nil {
			http.Error(w, fmt.Sprintf(`{"error":%q}`, eris.Cause(err).Error()), http.StatusBadRequest)
			return
		}

		planID := uuid.New().String()

		// Solve asynchronously against the server's lifetime, not the
		// request's.
		go func() {
			log := zap.L().With(zap.String("plan_id", planID), zap.String("instance", inst.Name))

			idx, err := coverage.Build(ctx, len(inst.Households), len(inst.Sites), inst.Threshold, inst.Distances.Func())
			if err != nil {
				log.Error("coverage build failed", zap.Error(err))
				return
			}
			plan, err := mclp.Solve(ctx, idx, inst, backend, opts, params)
			if err != nil {
				log.Error("solve failed", zap.Error(err))
				return
			}
			plan.ID = planID
			if err := st.SavePlan(ctx, plan); err != nil {
				log.Error("save plan failed", zap.Error(err))
				return
			}
			log.Info("solve complete",
				zap.String("status", string(plan.Status)),
				zap.Int64("covered_population", plan.CoveredPopulation),
			)
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"status":   "accepted",
			"id":       planID,
			"instance": inst.Name,
		})
	})

	mux.HandleFunc("GET /plans", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))

		plans, err := st.ListPlans(r.Context(), store.PlanFilter{
			Instance: q.Get("instance"),
			Status:   model.SolveStatus(q.Get("status")),
			Limit:    limit,
		})
		if err != nil {
			zap.L().Error("list plans failed", zap.Error(err))
			http.Error(w, `{"error":"list plans"}`, http.StatusInternalServerError)
			return
		}
		if plans == nil {
			plans = []model.Plan{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(plans)
	})

	mux.HandleFunc("GET /plans/{id}", func(w http.ResponseWriter, r *http.Request) {
		plan, err := st.GetPlan(r.Context(), r.PathValue("id"))
		if err != nil {
			if eris.Is(err, store.ErrNotFound) {
				http.Error(w, `{"error":"plan not found"}`, http.StatusNotFound)
				return
			}
			zap.L().Error("get plan failed", zap.Error(err))
			http.Error(w, `{"error":"get plan"}`, http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(plan)
	})

	return mux
}
