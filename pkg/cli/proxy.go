package cli

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/getmockd/netmock/pkg/config"
	"github.com/getmockd/netmock/pkg/proxy"
	"github.com/getmockd/netmock/pkg/vcr"
)

const (
	defaultProxyListen = "127.0.0.1:8080"
	defaultProxyKey    = "proxy"
	shutdownTimeout    = 10 * time.Second
)

var (
	proxyListen      string
	proxyTarget      string
	proxyKey         string
	proxyStore       string
	proxyStale       string
	proxyNoMatch     string
	proxyMaxAge      time.Duration
	proxyUseTimings  bool
	proxyIncludeKeys []string
)

var proxyCmd = &cobra.Command{
	Use:   "proxy",
	Short: "Run a recording proxy in front of real services",
	Long: `Run an HTTP proxy that answers from an archive and records what it cannot.

Without --target the proxy is a forward proxy: point HTTP_PROXY at it.
With --target it is a reverse proxy for that origin: point the client's base
URL at it. HTTPS CONNECT tunnels are forwarded but never recorded.

The archive is saved when the proxy receives SIGINT or SIGTERM.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := config.LoadFile(configPath)
		if err != nil {
			return err
		}
		settings, err := proxySettings(cmd, file)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runProxy(ctx, settings, nil)
	},
}

// proxyRun holds everything needed to start the proxy.
type proxyRun struct {
	Listen  string
	Target  *url.URL
	Scope   *proxy.Scope
	Options config.Options
	Context vcr.ContextOptions
}

// proxySettings layers the proxy flags over the config file. Only flags the
// user set override file values.
func proxySettings(cmd *cobra.Command, file *config.File) (proxyRun, error) {
	flags := cmd.Flags()
	cfg := file.Proxy

	scope, err := proxy.NewScope(cfg)
	if err != nil {
		return proxyRun{}, err
	}
	run := proxyRun{
		Listen: cfg.Listen,
		Scope:  scope,
	}
	if flags.Changed("listen") || run.Listen == "" {
		run.Listen = proxyListen
	}

	target := cfg.Target
	if flags.Changed("target") {
		target = proxyTarget
	}
	if target != "" {
		u, err := url.Parse(target)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return proxyRun{}, fmt.Errorf("invalid target %q: expected an absolute URL", target)
		}
		run.Target = u
	}

	var opts config.Options
	if flags.Changed("key") {
		opts.Key = proxyKey
	}
	if flags.Changed("store") {
		opts.Store = proxyStore
	}
	if flags.Changed("stale") {
		opts.Stale = config.StaleStrategy(proxyStale)
	}
	if flags.Changed("no-match") {
		opts.NoMatch = config.NoMatchStrategy(proxyNoMatch)
	}
	if flags.Changed("max-age") {
		opts.MaxAge = config.Duration(proxyMaxAge)
	}
	if flags.Changed("use-timings") {
		opts.UseTimings = config.Bool(proxyUseTimings)
	}
	if flags.Changed("include-keys") {
		opts.IncludeKeys = proxyIncludeKeys
	}
	if err := opts.Validate(); err != nil {
		return proxyRun{}, err
	}
	run.Options = opts

	run.Context = vcr.ContextOptions{
		Defaults: file.Options,
		Logger:   currentLogger(),
		Hooks:    vcr.LogHooks{Source: defaultProxyKey, Logger: currentLogger()},
	}
	return run, nil
}

// runProxy serves until ctx is done, then saves the archive. When ready is
// non-nil it receives the bound address once the listener is open.
func runProxy(ctx context.Context, run proxyRun, ready chan<- string) error {
	log := currentLogger()

	nm, err := vcr.NewContext(run.Context)
	if err != nil {
		return err
	}
	defer func() { _ = nm.Close() }()

	sess, err := nm.Start(nil, run.Options)
	if err != nil {
		return err
	}

	ln, err := net.Listen("tcp", run.Listen)
	if err != nil {
		_ = sess.Close()
		return fmt.Errorf("listen on %s: %w", run.Listen, err)
	}

	srv := &http.Server{
		Handler: proxy.New(proxy.Options{
			Session: sess,
			Scope:   run.Scope,
			Target:  run.Target,
			Logger:  log,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	mode := "forward"
	if run.Target != nil {
		mode = "reverse " + run.Target.String()
	}
	log.Info("proxy listening", "addr", ln.Addr().String(), "mode", mode, "archive", sess.Key())
	if ready != nil {
		ready <- ln.Addr().String()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	serveErr := g.Wait()
	log.Info("proxy stopped, saving archive", "archive", sess.Key())
	return errors.Join(serveErr, sess.Close())
}

func init() {
	f := proxyCmd.Flags()
	f.StringVar(&proxyListen, "listen", defaultProxyListen, "Address to listen on")
	f.StringVar(&proxyTarget, "target", "", "Reverse-proxy origin, e.g. https://api.example.com")
	f.StringVar(&proxyKey, "key", defaultProxyKey, "Archive key")
	f.StringVar(&proxyStore, "store", "", "Archive store (file:<dir>, sqlite:<path>, memory:)")
	f.StringVar(&proxyStale, "stale", "", "Stale entry strategy (reject, warn, refetch, ignore)")
	f.StringVar(&proxyNoMatch, "no-match", "", "Unmatched request strategy (reject, warn, fetch)")
	f.DurationVar(&proxyMaxAge, "max-age", 0, "Staleness threshold, e.g. 720h")
	f.BoolVar(&proxyUseTimings, "use-timings", false, "Replay with recorded wait and receive timings")
	f.StringSliceVar(&proxyIncludeKeys, "include-keys", nil, "Headers, query parameters and cookies stored unredacted and matched")
	rootCmd.AddCommand(proxyCmd)
}
