// Command strokedemo paints a few strokes on an in-memory canvas while
// exposing scheduler metrics on /metrics and recording stroke history in SQLite.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image"
	"image/color"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/osmike/strokes"
	"github.com/osmike/strokes/config"
	"github.com/osmike/strokes/monitoring"
	"github.com/osmike/strokes/monitoring/prom"
	"github.com/osmike/strokes/monitoring/sqlitemon"
	"github.com/osmike/strokes/paint"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	cfgPath := flag.String("config", "", "path to a .yaml or .toml config file")
	flag.Parse()

	if err := run(*cfgPath); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfgPath string) error {
	file := config.File{LogLevel: "debug", MetricsAddr: ":2112", HistoryDB: "strokes.db"}
	if cfgPath != "" {
		var err error
		if file, err = config.Load(cfgPath); err != nil {
			return err
		}
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		return err
	}
	defer logger.Sync()

	hooks := strokes.Hooks{
		OnStrokeRetired: func(st strokes.StrokeState) {
			logger.Info("stroke done", zap.String("strategy", st.StrategyID), zap.String("status", string(st.Status)))
		},
		OnUpdateError: func(id string, err error) {
			logger.Error("update failed", zap.String("update", id), zap.Error(err))
		},
	}
	poolCfg, err := file.Pool(hooks)
	if err != nil {
		return err
	}
	if cfgPath == "" {
		poolCfg.Logger = logger
	}

	reg := prometheus.NewRegistry()
	sinks := []strokes.Monitoring{monitoring.New(), prom.New(reg)}
	var history *sqlitemon.Store
	if file.HistoryDB != "" {
		if history, err = sqlitemon.Open(file.HistoryDB, logger); err != nil {
			return err
		}
		defer history.Close()
		sinks = append(sinks, history)
	}

	if file.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: file.MetricsAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server stopped", zap.Error(err))
			}
		}()
		defer srv.Close()
		logger.Info("metrics exposed", zap.String("addr", file.MetricsAddr))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	s, err := strokes.New(ctx, poolCfg, monitoring.NewMulti(sinks...))
	if err != nil {
		return err
	}
	go func() {
		if err := s.Run(); err != nil {
			logger.Error("scheduler stopped", zap.Error(err))
		}
	}()

	canvas := paint.NewCanvas(256, 256, color.White)
	if err := paintDemo(s, canvas); err != nil {
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if history != nil {
		records, err := history.History(context.Background(), 10)
		if err != nil {
			return err
		}
		for _, r := range records {
			fmt.Printf("%s %-12s %-10s jobs=%d\n", r.StartedAt.Format(time.TimeOnly), r.Strategy, r.Status, r.JobsDone)
		}
	}
	return nil
}

// paintDemo draws a diagonal line, cancels a scribble, inverts the canvas
// and requests a redraw after every stroke.
func paintDemo(s *strokes.Scheduler, canvas *paint.Canvas) error {
	redraw := func(name string) error {
		return s.AddUpdate(strokes.UpdateJob{ID: name, Fn: func(ctx context.Context) error {
			time.Sleep(time.Millisecond)
			return ctx.Err()
		}})
	}

	line, err := s.StartStroke(paint.NewBrush("line", canvas, 4, color.RGBA{R: 200, A: 255}))
	if err != nil {
		return err
	}
	for i := 0; i < 256; i += 8 {
		if err := s.AddJob(line, image.Pt(i, i)); err != nil {
			return err
		}
	}
	if err := s.EndStroke(line); err != nil {
		return err
	}
	if err := redraw("after-line"); err != nil {
		return err
	}

	scribble, err := s.StartStroke(paint.NewBrush("scribble", canvas, 8, color.RGBA{B: 200, A: 255}))
	if err != nil {
		return err
	}
	for i := 0; i < 64; i += 4 {
		if err := s.AddJob(scribble, image.Pt(200-i, i)); err != nil {
			return err
		}
	}
	if err := s.CancelStroke(scribble); err != nil {
		return err
	}

	invert, err := s.StartStroke(paint.NewFilter("invert", canvas, 64, paint.Invert))
	if err != nil {
		return err
	}
	if err := s.EndStroke(invert); err != nil {
		return err
	}
	return redraw("after-invert")
}
