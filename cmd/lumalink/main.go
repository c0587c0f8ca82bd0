// Package main provides the CLI entrypoint for lumalink.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/verte-zerg/lumalink/internal/capture"
	"github.com/verte-zerg/lumalink/internal/capture/gstcam"
	"github.com/verte-zerg/lumalink/internal/clock"
	"github.com/verte-zerg/lumalink/internal/codebook"
	"github.com/verte-zerg/lumalink/internal/config"
	"github.com/verte-zerg/lumalink/internal/generator"
	"github.com/verte-zerg/lumalink/internal/logging"
	"github.com/verte-zerg/lumalink/internal/model"
	"github.com/verte-zerg/lumalink/internal/receive"
	lsignal "github.com/verte-zerg/lumalink/internal/signal"
	"github.com/verte-zerg/lumalink/internal/statsui"
	"github.com/verte-zerg/lumalink/internal/store"
	"github.com/verte-zerg/lumalink/internal/transmit"
	"github.com/verte-zerg/lumalink/internal/tui"
)

const (
	defaultFPS          = transmit.DefaultFPS
	defaultCurveWindow  = 20
	defaultGenBits      = 8
	defaultRefresh      = 180
	defaultLoopTimeout  = 10 * time.Second
	defaultReceiveLimit = tui.DefaultTimeout
)

var (
	logFile string
	verbose bool

	transmitCode   string
	transmitFPS    float64
	transmitRandom int
	transmitFooter bool

	receiveCode      string
	receiveThreshold float64
	receiveCamera    string
	receiveTimeout   string

	loopCode      string
	loopExpect    string
	loopFPS       float64
	loopRefresh   float64
	loopThreshold float64
	loopNoise     int
	loopSeed      int64
	loopTimeout   time.Duration
	loopNoRecord  bool

	genBits   int
	genCount  int
	genMaxRun int
	genSeed   int64

	statsKind        string
	statsSince       string
	statsLast        int
	statsCurveWindow int
	statsCodes       string
)

func main() {
	rootCmd := newRootCmd()
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "lumalink",
		Short:         "Send and receive binary codes by flashing a screen at a camera",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", config.DefaultLogPath(), "event log path")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "log every decoded bit")

	rootCmd.AddCommand(newTransmitCmd())
	rootCmd.AddCommand(newReceiveCmd())
	rootCmd.AddCommand(newLoopbackCmd())
	rootCmd.AddCommand(newGenCmd())
	rootCmd.AddCommand(newCodesCmd())
	rootCmd.AddCommand(newDevicesCmd())
	rootCmd.AddCommand(newStatsCmd())
	rootCmd.AddCommand(newConfigCmd())

	return rootCmd
}

func newTransmitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "transmit",
		Short: "Flash a code on this terminal",
		Args:  cobra.NoArgs,
		RunE:  runTransmitCmd,
	}
	cmd.Flags().StringVar(&transmitCode, "code", "", "binary code or @name from the codebook")
	cmd.Flags().Float64Var(&transmitFPS, "fps", defaultFPS, "target frame rate (30-120)")
	cmd.Flags().IntVar(&transmitRandom, "random", 0, "transmit a random code of N bits")
	cmd.Flags().BoolVar(&transmitFooter, "footer", true, "show the status footer")
	return cmd
}

func runTransmitCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "code", &transmitCode, fileCfg.Transmit.Code)
	applyFloatConfig(cmd, "fps", &transmitFPS, fileCfg.Transmit.FPS)
	applyBoolConfig(cmd, "footer", &transmitFooter, fileCfg.Transmit.Footer)

	cfg := model.TransmitConfig{
		Code:   transmitCode,
		FPS:    transmitFPS,
		Random: transmitRandom,
		Footer: transmitFooter,
	}
	code, err := resolveTransmitCode(cfg, generator.New(), config.DefaultCodebookPath())
	if err != nil {
		return err
	}

	logger, closeLog, err := openLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	clk := clock.NewDriven()
	enc := transmit.New(clk, transmit.WithLogger(logger))
	defer enc.Stop()

	screen := tui.NewTransmitModel(enc, clk, code, cfg.FPS, cfg.Footer)
	program := tea.NewProgram(screen, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	res := screen.Result()
	if res.Err != nil {
		return fmt.Errorf("failed to transmit: %w", res.Err)
	}
	if !res.Started {
		return nil
	}
	run := model.Run{
		Kind:          model.KindTransmit,
		Code:          code,
		StartedAt:     res.StartedAt,
		EndedAt:       res.EndedAt,
		FPS:           res.FPS,
		BitDurationMs: res.BitMs,
		Result:        model.ResultStopped,
		DurationMs:    res.EndedAt.Sub(res.StartedAt).Milliseconds(),
	}
	if _, err := st.InsertRun(context.Background(), run, nil); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	logErrf("Transmitted %s at %.0f FPS (%.1f ms/bit)\n", code, res.FPS, res.BitMs)
	return nil
}

// resolveTransmitCode picks the code to send: a random one when cfg.Random is
// set, otherwise cfg.Code resolved through the codebook.
func resolveTransmitCode(cfg model.TransmitConfig, gen *generator.Generator, codebookPath string) (string, error) {
	if cfg.Random < 0 {
		return "", fmt.Errorf("--random must be >= 0")
	}
	if cfg.Random > 0 {
		if cfg.Code != "" {
			return "", fmt.Errorf("--code and --random cannot be combined")
		}
		return gen.Code(cfg.Random), nil
	}
	if cfg.Code == "" {
		return "", fmt.Errorf("--code is required (or use --random N)")
	}
	code, err := codebook.Resolve(cfg.Code, codebookPath)
	if err != nil {
		return "", err
	}
	if err := lsignal.ValidateCode(code); err != nil {
		return "", fmt.Errorf("invalid code %q: %w", code, err)
	}
	return code, nil
}

func newReceiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Watch a camera for a flashed code",
		Args:  cobra.NoArgs,
		RunE:  runReceiveCmd,
	}
	cmd.Flags().StringVar(&receiveCode, "code", "", "expected code or @name (empty: monitor only)")
	cmd.Flags().Float64Var(&receiveThreshold, "threshold", lsignal.DefaultThreshold, "brightness midpoint (0-255)")
	cmd.Flags().StringVar(&receiveCamera, "camera", "", "camera device (default: rear-facing or first)")
	cmd.Flags().StringVar(&receiveTimeout, "timeout", defaultReceiveLimit.String(), "deny access after this long (0: never)")
	return cmd
}

func runReceiveCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyStringConfig(cmd, "code", &receiveCode, fileCfg.Receive.Code)
	applyFloatConfig(cmd, "threshold", &receiveThreshold, fileCfg.Receive.Threshold)
	applyStringConfig(cmd, "camera", &receiveCamera, fileCfg.Receive.Camera)
	applyStringConfig(cmd, "timeout", &receiveTimeout, fileCfg.Receive.Timeout)

	timeout, err := time.ParseDuration(receiveTimeout)
	if err != nil {
		return fmt.Errorf("invalid --timeout value: %w", err)
	}
	cfg := model.ReceiveConfig{
		Code:      receiveCode,
		Threshold: receiveThreshold,
		Camera:    receiveCamera,
		Timeout:   timeout,
	}
	if err := validateReceiveConfig(cfg); err != nil {
		return err
	}
	if cfg.Code != "" {
		cfg.Code, err = codebook.Resolve(cfg.Code, config.DefaultCodebookPath())
		if err != nil {
			return err
		}
		if err := lsignal.ValidateCode(cfg.Code); err != nil {
			return fmt.Errorf("invalid code %q: %w", cfg.Code, err)
		}
	}

	cameraLabel := ""
	devices, err := capture.ListDevices()
	if err != nil {
		logErrf("failed to list cameras: %v\n", err)
	}
	if cfg.Camera == "" {
		cfg.Camera = capture.PreferredDevice(devices)
	}
	for _, d := range devices {
		if d.ID == cfg.Camera {
			cameraLabel = fmt.Sprintf("%s (%s)", d.Label, d.ID)
		}
	}

	logger, closeLog, err := openLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	clk := clock.NewTicker(clock.DefaultInterval)
	defer clk.Close()

	matches := make(chan receive.Snapshot, 1)
	rec := &bitRecorder{}
	dec := receive.New(clk, gstcam.New(logger),
		receive.WithLogger(logger),
		receive.WithOnBit(rec.record),
		receive.WithOnMatch(func(s receive.Snapshot) {
			select {
			case matches <- s:
			default:
			}
		}),
	)
	defer dec.Stop()

	opts := receive.Options{
		ExpectedCode: cfg.Code,
		Threshold:    cfg.Threshold,
		CameraID:     cfg.Camera,
	}
	monitor := tui.NewReceiveModel(dec, capture.NewFeed(), capture.NewSurface(), opts, cfg.Timeout, matches, cameraLabel)
	program := tea.NewProgram(monitor, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run TUI: %w", err)
	}

	out := monitor.Outcome()
	if out.Err != nil {
		return fmt.Errorf("failed to receive: %w", out.Err)
	}
	if !out.Started {
		return nil
	}
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = lsignal.DefaultThreshold
	}
	run := model.Run{
		Kind:          model.KindReceive,
		Code:          cfg.Code,
		StartedAt:     out.StartedAt,
		EndedAt:       out.EndedAt,
		FPS:           out.Snapshot.FPS,
		BitDurationMs: float64(dec.BitDuration()) / float64(time.Millisecond),
		Threshold:     threshold,
		Result:        out.Result,
		Bitstream:     out.Snapshot.Bitstream,
		Bits:          len(out.Snapshot.Bitstream),
		Frames:        out.Snapshot.Frames,
		DurationMs:    out.EndedAt.Sub(out.StartedAt).Milliseconds(),
	}
	if _, err := st.InsertRun(context.Background(), run, rec.Samples()); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	logErrf("Result: %s\n", out.Result)
	return nil
}

func validateReceiveConfig(cfg model.ReceiveConfig) error {
	if cfg.Threshold < 0 || cfg.Threshold > 255 {
		return fmt.Errorf("--threshold must be between 0 and 255")
	}
	if cfg.Timeout < 0 {
		return fmt.Errorf("--timeout must be >= 0")
	}
	return nil
}

func newLoopbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loopback",
		Short: "Send a code through a simulated camera",
		Args:  cobra.NoArgs,
		RunE:  runLoopbackCmd,
	}
	cmd.Flags().StringVar(&loopCode, "code", "", "code to transmit or @name (required)")
	cmd.Flags().StringVar(&loopExpect, "expect", "", "code the receiver expects (default: --code)")
	cmd.Flags().Float64Var(&loopFPS, "fps", defaultFPS, "transmitter target frame rate")
	cmd.Flags().Float64Var(&loopRefresh, "refresh", defaultRefresh, "simulated display refresh rate in Hz")
	cmd.Flags().Float64Var(&loopThreshold, "threshold", lsignal.DefaultThreshold, "brightness midpoint (0-255)")
	cmd.Flags().IntVar(&loopNoise, "noise", 0, "maximum per-channel pixel noise")
	cmd.Flags().Int64Var(&loopSeed, "seed", 1, "noise seed")
	cmd.Flags().DurationVar(&loopTimeout, "timeout", defaultLoopTimeout, "simulated time before access is denied")
	cmd.Flags().BoolVar(&loopNoRecord, "no-record", false, "do not save the run")
	return cmd
}

func runLoopbackCmd(cmd *cobra.Command, _ []string) error {
	if loopCode == "" {
		return fmt.Errorf("--code is required")
	}
	path := config.DefaultCodebookPath()
	code, err := codebook.Resolve(loopCode, path)
	if err != nil {
		return err
	}
	expect := loopExpect
	if expect != "" {
		if expect, err = codebook.Resolve(expect, path); err != nil {
			return err
		}
	}
	if loopThreshold < 0 || loopThreshold > 255 {
		return fmt.Errorf("--threshold must be between 0 and 255")
	}
	if loopNoise < 0 {
		return fmt.Errorf("--noise must be >= 0")
	}

	logger, closeLog, err := openLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	run, samples, err := runLoopback(ctx, loopbackConfig{
		Code:      code,
		Expect:    expect,
		FPS:       loopFPS,
		Refresh:   loopRefresh,
		Threshold: loopThreshold,
		Noise:     loopNoise,
		Seed:      loopSeed,
		Timeout:   loopTimeout,
	}, logger)
	if err != nil {
		return err
	}
	if err := printLoopback(cmd.OutOrStdout(), run); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	if loopNoRecord {
		return nil
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()
	if _, err := st.InsertRun(context.Background(), run, samples); err != nil {
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

func printLoopback(w io.Writer, run model.Run) error {
	lines := []string{
		fmt.Sprintf("Code: %s", run.Code),
		fmt.Sprintf("FPS: %.0f (%.2f ms/bit)", run.FPS, run.BitDurationMs),
		fmt.Sprintf("Bitstream: %s", run.Bitstream),
		fmt.Sprintf("Frames: %d", run.Frames),
		fmt.Sprintf("Elapsed: %s", time.Duration(run.DurationMs)*time.Millisecond),
		fmt.Sprintf("Result: %s", strings.ToUpper(run.Result)),
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func newGenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gen",
		Short: "Generate random codes",
		Args:  cobra.NoArgs,
		RunE:  runGenCmd,
	}
	cmd.Flags().IntVar(&genBits, "bits", defaultGenBits, "bits per code")
	cmd.Flags().IntVar(&genCount, "count", 1, "number of codes")
	cmd.Flags().IntVar(&genMaxRun, "max-run", 0, "longest run of equal bits (0: unlimited)")
	cmd.Flags().Int64Var(&genSeed, "seed", 0, "random seed (0: time based)")
	return cmd
}

func runGenCmd(cmd *cobra.Command, _ []string) error {
	if genBits <= 0 {
		return fmt.Errorf("--bits must be > 0")
	}
	if genCount <= 0 {
		return fmt.Errorf("--count must be > 0")
	}
	gen := generator.New()
	if genSeed != 0 {
		gen = generator.NewSeeded(genSeed)
	}
	for _, code := range gen.Batch(genCount, genBits, genMaxRun) {
		if _, err := fmt.Fprintln(cmd.OutOrStdout(), code); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newCodesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "codes",
		Short: "List named codes from the codebook",
		Args:  cobra.NoArgs,
		RunE:  runCodesCmd,
	}
}

func runCodesCmd(cmd *cobra.Command, _ []string) error {
	path := config.DefaultCodebookPath()
	book, err := codebook.Load(path)
	if err != nil {
		if os.IsNotExist(err) {
			logErrf("No codebook found. Create %s with lines like: door = 1011\n", path)
			return fmt.Errorf("codebook does not exist")
		}
		return fmt.Errorf("failed to load codebook: %w", err)
	}
	for _, entry := range book.Entries() {
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s%s\t%s\n", codebook.RefPrefix, entry.Name, entry.Code); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newDevicesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "devices",
		Short: "List cameras",
		Args:  cobra.NoArgs,
		RunE:  runDevicesCmd,
	}
}

func runDevicesCmd(cmd *cobra.Command, _ []string) error {
	devices, err := capture.ListDevices()
	if err != nil {
		return err
	}
	if len(devices) == 0 {
		return fmt.Errorf("no cameras found")
	}
	preferred := capture.PreferredDevice(devices)
	for _, d := range devices {
		mark := " "
		if d.ID == preferred {
			mark = "*"
		}
		if _, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\t%s\n", mark, d.ID, d.Label); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
	}
	return nil
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show run history",
		Args:  cobra.NoArgs,
		RunE:  runStatsCmd,
	}
	cmd.Flags().StringVar(&statsKind, "kind", "", "run kind filter (transmit, receive, loopback)")
	cmd.Flags().StringVar(&statsSince, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&statsLast, "last", 0, "limit to last N runs")
	cmd.Flags().IntVar(&statsCurveWindow, "curve-window", defaultCurveWindow, "moving average window")
	cmd.Flags().StringVar(&statsCodes, "code", "", "comma-separated codes for per-code curves")
	return cmd
}

func runStatsCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.Load(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	applyIntConfig(cmd, "curve-window", &statsCurveWindow, fileCfg.Stats.CurveWindow)

	cfg, err := buildStatsConfig(statsKind, statsSince, statsLast, statsCurveWindow, statsCodes)
	if err != nil {
		return err
	}

	st, err := store.Open(config.DefaultDBPath())
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logErrf("failed to close db: %v\n", cerr)
		}
	}()

	ui := statsui.NewModel(st, cfg)
	program := tea.NewProgram(ui, tea.WithAltScreen())
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("failed to run stats TUI: %w", err)
	}
	return nil
}

func buildStatsConfig(kind, since string, last, window int, codes string) (model.StatsConfig, error) {
	switch kind {
	case "", model.KindTransmit, model.KindReceive, model.KindLoopback:
	default:
		return model.StatsConfig{}, fmt.Errorf("invalid --kind value %q", kind)
	}
	var sinceTime *time.Time
	if since != "" {
		parsed, err := time.ParseInLocation("2006-01-02", since, time.Local)
		if err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --since value: %w", err)
		}
		sinceTime = &parsed
	}
	if last < 0 {
		return model.StatsConfig{}, fmt.Errorf("--last must be >= 0")
	}
	if window <= 0 {
		return model.StatsConfig{}, fmt.Errorf("--curve-window must be > 0")
	}
	var codeList []string
	for _, part := range strings.Split(codes, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if err := lsignal.ValidateCode(part); err != nil {
			return model.StatsConfig{}, fmt.Errorf("invalid --code value %q: %w", part, err)
		}
		codeList = append(codeList, part)
	}
	return model.StatsConfig{
		Kind:        kind,
		Since:       sinceTime,
		Last:        last,
		CurveWindow: window,
		Codes:       codeList,
	}, nil
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Create/open config file",
		Args:  cobra.NoArgs,
		RunE:  runConfigCmd,
	}
}

func runConfigCmd(_ *cobra.Command, _ []string) error {
	path := config.DefaultConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return fmt.Errorf("failed to stat config: %w", err)
		}
		if err := os.WriteFile(path, []byte(defaultConfigTemplate()), 0o644); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
	}

	editor := strings.TrimSpace(os.Getenv("EDITOR"))
	if editor == "" {
		editor = "vi"
	}
	parts := strings.Fields(editor)
	if len(parts) == 0 {
		return fmt.Errorf("editor command is empty")
	}
	cmd := exec.Command(parts[0], append(parts[1:], path)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to open editor: %w", err)
	}
	return nil
}

// openLogger opens the event log named by --log-file. The returned func
// closes it.
func openLogger() (logging.Logger, func(), error) {
	lvl := logging.LevelInfo
	if verbose {
		lvl = logging.LevelDebug
	}
	logger, closer, err := logging.OpenFile(logFile, lvl)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() {
		if cerr := closer.Close(); cerr != nil {
			logErrf("failed to close log: %v\n", cerr)
		}
	}, nil
}

func applyStringConfig(cmd *cobra.Command, name string, target, value *string) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyIntConfig(cmd *cobra.Command, name string, target, value *int) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyFloatConfig(cmd *cobra.Command, name string, target, value *float64) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func applyBoolConfig(cmd *cobra.Command, name string, target, value *bool) {
	if value == nil {
		return
	}
	if cmd.Flags().Changed(name) {
		return
	}
	*target = *value
}

func defaultConfigTemplate() string {
	return fmt.Sprintf(`# lumalink configuration
# Uncomment a value to enable it. CLI flags override config values,
# and LUMALINK_<SECTION>_<KEY> environment variables override this file.

[transmit]
# code = "10110"          # Code to flash, or "@name" from the codebook
# fps = %.0f                # Target frame rate (30-120)
# footer = true           # Show the status footer

[receive]
# code = "10110"          # Expected code, or "@name" from the codebook
# threshold = %.0f         # Brightness midpoint (0-255)
# camera = "/dev/video0"  # Camera device
# timeout = %q          # Deny access after this long ("0s": never)

[stats]
# curve-window = %d       # Moving average window
`,
		float64(defaultFPS),
		float64(lsignal.DefaultThreshold),
		defaultReceiveLimit.String(),
		defaultCurveWindow,
	)
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
