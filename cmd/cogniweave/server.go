package main

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
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/spf13/cobra"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/cogniweave/cogniweave/internal/api"
	"github.com/cogniweave/cogniweave/internal/article"
	"github.com/cogniweave/cogniweave/internal/config"
	"github.com/cogniweave/cogniweave/internal/profile"
	"github.com/cogniweave/cogniweave/internal/storage"
	"github.com/cogniweave/cogniweave/internal/transform"
)

var startMCP bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the cogniweave server (foreground)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(startMCP)
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the running cogniweave server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return stopServer()
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show cogniweave server status",
	RunE: func(cmd *cobra.Command, args []string) error {
		return showStatus(cmd.Context())
	},
}

func init() {
	startCmd.Flags().BoolVar(&startMCP, "mcp", false, "also serve MCP over stdin/stdout")
}

func pidFilePath(dataDir string) string {
	return filepath.Join(dataDir, "cogniweave.pid")
}

func writePIDFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(data)))
}

func removePIDFile(path string) {
	os.Remove(path)
}

// newLogger builds the process logger from the log config. Output always goes
// to w; stdout stays free for the MCP transport.
func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	level, err := config.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func runServer(mcpMode bool) error {
	fmt.Fprintf(os.Stderr, "cogniweave version %s\n", version)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log, os.Stderr)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	// Refuse to start twice: a healthy server on our port means another instance.
	pidPath := pidFilePath(cfg.Storage.DataDir)
	healthURL := fmt.Sprintf("http://127.0.0.1:%d/health", cfg.Server.Port)
	healthClient := &http.Client{Timeout: 2 * time.Second}
	if resp, err := healthClient.Get(healthURL); err == nil {
		resp.Body.Close()
		if pid, pidErr := readPIDFile(pidPath); pidErr == nil {
			printWarning("cogniweave is already running (PID %d)", pid)
			return fmt.Errorf("server already running (PID %d)", pid)
		}
		printWarning("cogniweave is already running on port %d", cfg.Server.Port)
		return fmt.Errorf("server already running on port %d", cfg.Server.Port)
	}
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("writing PID file: %w", err)
	}
	defer removePIDFile(pidPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("opening storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "warning: closing storage: %v\n", err)
		}
	}()

	var dict *transform.Dictionary
	if cfg.Transform.DictionaryFile != "" {
		dict, err = transform.LoadDictionary(cfg.Transform.DictionaryFile)
		if err != nil {
			return err
		}
		slog.Info("loaded dictionary", "path", cfg.Transform.DictionaryFile, "terms", dict.Len())
	}

	library := article.NewLibrary(cfg.Articles.Dir, cfg.Articles.Patterns)
	if err := library.Load(ctx); err != nil {
		return fmt.Errorf("loading articles: %w", err)
	}
	slog.Info("article library ready", "dir", cfg.Articles.Dir, "articles", len(library.List()))

	if cfg.Server.APIToken == "" {
		slog.Warn("no API token configured; API is open to local clients")
	}

	deps := api.AppDeps{
		Store:       store,
		Profile:     profile.NewManager(store, storage.IsNotFound),
		Library:     library,
		Transformer: transform.New(dict),
		Token:       cfg.Server.APIToken,
		Logger:      logger,
	}

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Server.Port)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	ln = netutil.LimitListener(ln, cfg.Server.MaxConnections)

	srv := &http.Server{
		Handler:           api.NewAppHandler(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		fmt.Fprintf(os.Stderr, "cogniweave listening on %s\n", addr)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		fmt.Fprintln(os.Stderr, "shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if cfg.Articles.Watch && cfg.Articles.Dir != "" {
		g.Go(func() error {
			return library.Watch(gctx)
		})
	}

	if mcpMode {
		g.Go(func() error {
			stdioSrv := server.NewStdioServer(api.NewMCPServer(deps, version))
			slog.Info("MCP server started (stdio transport)")
			if err := stdioSrv.Listen(gctx, os.Stdin, os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
				slog.Error("MCP stdio server error", "error", err)
			}
			return nil
		})
	}

	return g.Wait()
}

func stopServer() error {
	cfg, err := config.Load()
	if err != nil {
		printError("could not load config: %v", err)
		return err
	}

	pidPath := pidFilePath(cfg.Storage.DataDir)
	pid, err := readPIDFile(pidPath)
	if err != nil {
		printError("cogniweave is not running (no PID file)")
		return fmt.Errorf("not running: %w", err)
	}

	process, err := os.FindProcess(pid)
	if err != nil {
		printError("could not find process %d", pid)
		return err
	}

	if err := process.Signal(syscall.SIGTERM); err != nil {
		printError("could not stop cogniweave (PID %d): %v", pid, err)
		removePIDFile(pidPath)
		return err
	}

	printSuccess("Sent stop signal to cogniweave (PID %d)", pid)
	return nil
}

const statusHistoryLimit = 100

func showStatus(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		printError("config error: %v", err)
		return nil
	}

	client, err := newAPIClient()
	if err != nil {
		printError("%v", err)
		return nil
	}
	client.httpClient.Timeout = 2 * time.Second

	resp, err := client.get(ctx, "/health")
	if err != nil {
		printStatus("Server", "stopped")
		printStatus("Data dir", "%s", cfg.Storage.DataDir)
		return nil
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		printStatus("Server", "error (HTTP %d)", resp.StatusCode)
		return nil
	}
	printStatus("Server", "running on port %d", cfg.Server.Port)

	if resp, err := client.get(ctx, "/profile"); err == nil {
		var p json.RawMessage
		switch err := decodeJSON(resp, &p); {
		case err == nil:
			printStatus("Profile", "stored")
		case isStatus(err, http.StatusNotFound):
			printStatus("Profile", "none (run `cogniweave onboard`)")
		default:
			printStatus("Profile", "error: %v", err)
		}
	}

	if resp, err := client.get(ctx, "/articles"); err == nil {
		var list []article.Summary
		if decodeJSON(resp, &list) == nil {
			printStatus("Articles", "%d", len(list))
		}
	}

	if resp, err := client.get(ctx, fmt.Sprintf("/transforms?limit=%d", statusHistoryLimit)); err == nil {
		var records []storage.TransformRecord
		if decodeJSON(resp, &records) == nil {
			printStatus("Transforms", "%s", countLabel(len(records), statusHistoryLimit))
		}
	}

	printStatus("Data dir", "%s", cfg.Storage.DataDir)
	if cfg.Articles.Dir != "" {
		printStatus("Articles dir", "%s", cfg.Articles.Dir)
	}
	return nil
}

func countLabel(count, limit int) string {
	if count >= limit {
		return fmt.Sprintf("%d+", count)
	}
	return fmt.Sprintf("%d", count)
}
