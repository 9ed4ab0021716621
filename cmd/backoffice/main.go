// Command backoffice inspects and maintains the persisted back-office
// snapshot: consistency checks, export and import, status repair, document
// number previews and metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	_ "time/tzdata"

	redis "github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"dokan/backend/internal/config"
	"dokan/backend/internal/events"
	"dokan/backend/internal/metrics"
	"dokan/backend/internal/persist"
	"dokan/backend/internal/sequence"
	"dokan/backend/internal/snapshot"
	"dokan/backend/internal/storage"
	"dokan/backend/internal/store"
)

const usage = `usage: backoffice <command> [flags]

commands:
  check                  load the snapshot and report integrity problems
  export [-o file]       write the snapshot as JSON
  import [-i file]       replace the snapshot with a JSON document
  repair                 re-derive challan statuses and save
  next-number <family>   show the next order, challan or service-job number
  stats                  print record counts as Prometheus metrics
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) == 0 || args[0] == "-h" || args[0] == "help" {
		fmt.Fprint(stderr, usage)
		return 2
	}

	cfg := config.Load()
	logger, err := config.NewLogger(cfg.LogLevel, cfg.LogFormat, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "logger: %v\n", err)
		return 2
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "check", "export", "import", "repair", "next-number", "stats":
	default:
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", cmd, usage)
		return 2
	}

	app, err := open(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Error("open store")
		return 1
	}
	defer app.close(logger)

	switch cmd {
	case "check":
		err = app.check(stdout)
	case "export":
		err = app.export(rest, stdout)
	case "import":
		err = app.importSnapshot(ctx, rest, stdin, stdout)
	case "repair":
		err = app.repair(ctx, stdout)
	case "next-number":
		err = app.nextNumber(rest, stdout)
	case "stats":
		err = app.metrics.WriteText(stdout)
	}
	if err != nil {
		var usageErr usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(stderr, "%v\n\n%s", err, usage)
			return 2
		}
		logger.WithError(err).WithField("command", cmd).Error("command failed")
		return 1
	}
	return 0
}

type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }

type app struct {
	store   *store.Store
	report  persist.LoadReport
	metrics *metrics.Metrics
	closers []func() error
}

func open(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*app, error) {
	a := &app{metrics: metrics.New()}
	fail := func(err error) (*app, error) {
		a.close(logger)
		return nil, err
	}

	storageCfg, err := cfg.StorageConfig()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	backend, err := storage.Open(ctx, storageCfg)
	if err != nil {
		return nil, fmt.Errorf("storage %s: %w", storageCfg.Driver, err)
	}
	a.closers = append(a.closers, backend.Close)
	logger.WithField("driver", backend.Driver()).Debug("storage ready")

	guard := persist.Guard(persist.NoopGuard{})
	if cfg.WriterLock {
		var client *redis.Client
		if rb, ok := backend.(*storage.Redis); ok {
			client = rb.Client()
		} else {
			client = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
			a.closers = append(a.closers, client.Close)
		}
		guard = persist.NewRedisGuard(client, cfg.PrimarySlot+":lock", cfg.WriterLockTTL, cfg.WriterLockTTL)
	}

	var publisher events.Publisher = events.NewLogPublisher(logger)
	if cfg.PubSubTopic != "" {
		ps, err := events.NewPubSubPublisher(ctx, cfg.PubSubProject, cfg.PubSubTopic, cfg.PubSubCredentialsJSON)
		if err != nil {
			return fail(err)
		}
		publisher = ps
	}

	adapter := persist.New(persist.Options{
		Backend:    backend,
		PrimaryKey: cfg.PrimarySlot,
		BackupKey:  cfg.BackupSlot,
		Retries:    cfg.WriteRetries,
		Backoff:    cfg.WriteRetryBackoff,
		Logger:     logger,
	})
	st, report, err := store.Open(ctx, store.Options{
		Adapter:   adapter,
		Guard:     guard,
		Publisher: publisher,
		Metrics:   a.metrics,
		Logger:    logger,
		Location:  loc,
	})
	if err != nil {
		_ = publisher.Close()
		return fail(err)
	}
	a.store = st
	a.report = report
	a.closers = append([]func() error{st.Close}, a.closers...)
	return a, nil
}

func (a *app) close(logger logrus.FieldLogger) {
	for _, closeFn := range a.closers {
		if err := closeFn(); err != nil {
			logger.WithError(err).Warn("close")
		}
	}
	a.closers = nil
}

func (a *app) check(stdout io.Writer) error {
	fmt.Fprintf(stdout, "loaded from: %s\n", a.report.Source)
	if a.report.Recovered() {
		fmt.Fprintf(stdout, "primary slot: %v\n", a.report.PrimaryErr)
	}
	if a.report.BackupErr != nil {
		fmt.Fprintf(stdout, "backup slot: %v\n", a.report.BackupErr)
	}
	if a.report.Healed {
		fmt.Fprintln(stdout, "primary slot rewritten from backup")
	}
	problems := a.store.Verify()
	for _, p := range problems {
		fmt.Fprintln(stdout, p)
	}
	if len(problems) > 0 {
		return fmt.Errorf("%d integrity problems", len(problems))
	}
	fmt.Fprintln(stdout, "ok")
	return nil
}

func (a *app) export(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	out := fs.String("o", "", "output file (default stdout)")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	data, err := snapshot.Encode(a.store.Snapshot())
	if err != nil {
		return err
	}
	if *out == "" {
		_, err = stdout.Write(append(data, '\n'))
		return err
	}
	return os.WriteFile(*out, data, 0o644)
}

func (a *app) importSnapshot(ctx context.Context, args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	in := fs.String("i", "", "input file (default stdin)")
	if err := fs.Parse(args); err != nil {
		return usageError{msg: err.Error()}
	}
	var (
		data []byte
		err  error
	)
	if *in == "" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(*in)
	}
	if err != nil {
		return err
	}
	s, err := snapshot.Decode(data)
	if err != nil {
		return err
	}
	if err := a.store.Replace(ctx, s); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported revision %d\n", a.store.Snapshot().Meta.Revision)
	return nil
}

func (a *app) repair(ctx context.Context, stdout io.Writer) error {
	changed, err := a.store.Repair(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "re-derived %d challans\n", changed)
	return nil
}

func (a *app) nextNumber(args []string, stdout io.Writer) error {
	if len(args) != 1 {
		return usageError{msg: "next-number needs one family: order, challan or service-job"}
	}
	number, err := a.store.PeekNumber(sequence.Family(args[0]))
	if err != nil {
		return usageError{msg: err.Error()}
	}
	fmt.Fprintln(stdout, number)
	return nil
}
