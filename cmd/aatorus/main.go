package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/odonata-labs/aatorus/internal/actions"
	"github.com/odonata-labs/aatorus/internal/config"
	"github.com/odonata-labs/aatorus/internal/coords"
	"github.com/odonata-labs/aatorus/internal/orbit"
	"github.com/odonata-labs/aatorus/internal/potential"
	"github.com/odonata-labs/aatorus/internal/report"
	"github.com/odonata-labs/aatorus/internal/tui"
	"github.com/odonata-labs/aatorus/internal/units"
	"github.com/odonata-labs/aatorus/internal/validate"
)

var (
	configFile    string
	potentialFile string
	preset        string
	debug         bool

	// target actions, kpc^2/Myr
	jr   float64
	jz   float64
	jphi float64

	// sampling
	samples int
	periods float64

	// output
	live       bool
	verbose    bool
	inlinePlot bool
	orbitPlot  string
	actionPlot string

	// phase-space point, kpc and kpc/Myr
	posR, posZ, posPhi float64
	velR, velZ, velPhi float64
	angR, angZ, angPhi float64
	orbitDt, orbitTime float64
	orbitScheme        string
	orbitEvery         int
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "aatorus",
		Short: "action-angle tori for axisymmetric galactic potentials",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelInfo
			if debug {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(
				tint.NewHandler(os.Stderr, &tint.Options{
					Level:      level,
					TimeFormat: "15:04:05",
				}),
			))
		},
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&potentialFile, "potential", "", "galaxy definition file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "debug logging")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "check torus map and action finder against each other",
		RunE:  runValidate,
	}
	validateCmd.Flags().Float64Var(&jr, "jr", config.DefaultJr, "radial action [kpc²/Myr]")
	validateCmd.Flags().Float64Var(&jz, "jz", config.DefaultJz, "vertical action [kpc²/Myr]")
	validateCmd.Flags().Float64Var(&jphi, "jphi", config.DefaultJphi, "azimuthal action [kpc²/Myr]")
	validateCmd.Flags().IntVar(&samples, "samples", 64, "points along the orbit")
	validateCmd.Flags().Float64Var(&periods, "periods", 4, "sampled span in fastest periods")
	validateCmd.Flags().StringVar(&preset, "preset", "", "named target orbit (thin-disk, thick-disk, ...)")
	validateCmd.Flags().BoolVar(&live, "live", false, "live progress view")
	validateCmd.Flags().BoolVar(&verbose, "verbose", false, "per-sample trace")
	validateCmd.Flags().BoolVar(&inlinePlot, "plot", false, "inline action chart")
	validateCmd.Flags().StringVar(&orbitPlot, "orbit-plot", "", "write meridional-plane plot (svg/png)")
	validateCmd.Flags().StringVar(&actionPlot, "action-plot", "", "write recovered-action plot (svg/png)")

	findCmd := &cobra.Command{
		Use:   "find",
		Short: "approximate actions and angles of a phase-space point",
		RunE:  runFind,
	}
	findCmd.Flags().Float64Var(&posR, "R", 8.0, "radius [kpc]")
	findCmd.Flags().Float64Var(&posZ, "z", 0.1, "height [kpc]")
	findCmd.Flags().Float64Var(&posPhi, "phi", 0, "azimuth [rad]")
	findCmd.Flags().Float64Var(&velR, "vR", 0, "radial velocity [kpc/Myr]")
	findCmd.Flags().Float64Var(&velZ, "vz", 0, "vertical velocity [kpc/Myr]")
	findCmd.Flags().Float64Var(&velPhi, "vphi", 0.22, "azimuthal velocity [kpc/Myr]")

	mapCmd := &cobra.Command{
		Use:   "map",
		Short: "map actions and angles to a phase-space point",
		RunE:  runMap,
	}
	mapCmd.Flags().Float64Var(&jr, "jr", config.DefaultJr, "radial action [kpc²/Myr]")
	mapCmd.Flags().Float64Var(&jz, "jz", config.DefaultJz, "vertical action [kpc²/Myr]")
	mapCmd.Flags().Float64Var(&jphi, "jphi", config.DefaultJphi, "azimuthal action [kpc²/Myr]")
	mapCmd.Flags().Float64Var(&angR, "thr", 0, "radial angle [rad]")
	mapCmd.Flags().Float64Var(&angZ, "thz", 0, "vertical angle [rad]")
	mapCmd.Flags().Float64Var(&angPhi, "thphi", 0, "azimuthal angle [rad]")

	orbitCmd := &cobra.Command{
		Use:   "orbit",
		Short: "integrate an orbit and report conservation diagnostics",
		RunE:  runOrbit,
	}
	orbitCmd.Flags().Float64Var(&posR, "R", 8.0, "radius [kpc]")
	orbitCmd.Flags().Float64Var(&posZ, "z", 0.1, "height [kpc]")
	orbitCmd.Flags().Float64Var(&posPhi, "phi", 0, "azimuth [rad]")
	orbitCmd.Flags().Float64Var(&velR, "vR", 0, "radial velocity [kpc/Myr]")
	orbitCmd.Flags().Float64Var(&velZ, "vz", 0.01, "vertical velocity [kpc/Myr]")
	orbitCmd.Flags().Float64Var(&velPhi, "vphi", 0.22, "azimuthal velocity [kpc/Myr]")
	orbitCmd.Flags().Float64Var(&orbitDt, "dt", 0.5, "time step [Myr]")
	orbitCmd.Flags().Float64Var(&orbitTime, "time", 2000, "duration [Myr]")
	orbitCmd.Flags().StringVar(&orbitScheme, "integrator", "leapfrog", "leapfrog or rk4")
	orbitCmd.Flags().IntVar(&orbitEvery, "every", 10, "record every n-th step")

	configCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a default config file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return config.Save(args[0], config.DefaultConfig())
		},
	}

	rootCmd.AddCommand(validateCmd, findCmd, mapCmd, orbitCmd, configCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		var err error
		cfg, err = config.Load(configFile)
		if err != nil {
			return nil, err
		}
	}
	if preset != "" {
		p, ok := config.Preset(preset)
		if !ok {
			return nil, fmt.Errorf("unknown preset %q", preset)
		}
		cfg.Actions = p.Actions
	}
	flags := cmd.Flags()
	if flags.Changed("jr") {
		cfg.Actions.Jr = jr
	}
	if flags.Changed("jz") {
		cfg.Actions.Jz = jz
	}
	if flags.Changed("jphi") {
		cfg.Actions.Jphi = jphi
	}
	if flags.Changed("samples") {
		cfg.Sampling.Samples = samples
	}
	if flags.Changed("periods") {
		cfg.Sampling.Periods = periods
	}
	if potentialFile != "" {
		cfg.Potential = potentialFile
	}
	return cfg, nil
}

func buildPotential(cfg *config.Config) (potential.Potential, error) {
	u := cfg.GetUnits()
	if cfg.Potential == "" {
		return potential.DefaultGalaxy(u)
	}
	f, err := os.Open(cfg.Potential)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return potential.ReadGalaxyDefinition(f, u)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	pot, err := buildPotential(cfg)
	if err != nil {
		return err
	}
	u := cfg.GetUnits()
	target := cfg.GetActions()
	mapper := actions.NewTorusMapperWith(pot, cfg.GetTorusOptions())
	finder := actions.NewFudgeFinder(pot)
	opts := cfg.GetValidateOptions()

	ctx, cancel := signalContext()
	defer cancel()

	slog.Info("validating", "jr", cfg.Actions.Jr, "jz", cfg.Actions.Jz, "jphi", cfg.Actions.Jphi,
		"samples", opts.Samples, "periods", opts.Periods)

	var res *validate.Result
	if live {
		res, err = tui.RunValidation(ctx, pot, mapper, finder, target, opts, u)
	} else {
		res, err = validate.Run(ctx, pot, mapper, finder, target, opts)
	}
	if err != nil {
		return err
	}

	w := report.NewWriter(os.Stdout, u)
	w.Verbose = verbose
	w.Plot = inlinePlot
	if err := w.Render(res); err != nil {
		return err
	}
	if orbitPlot != "" {
		if err := w.SaveOrbitPlot(res, orbitPlot); err != nil {
			return err
		}
		slog.Info("wrote orbit plot", "file", orbitPlot)
	}
	if actionPlot != "" {
		if err := w.SaveActionPlot(res, actionPlot); err != nil {
			return err
		}
		slog.Info("wrote action plot", "file", actionPlot)
	}
	if !res.Pass {
		return fmt.Errorf("consistency check failed")
	}
	return nil
}

func pointFromFlags(u units.Units) coords.PosVelCyl {
	return coords.PosVelCyl{
		PosCyl: coords.PosCyl{
			R:   u.FromKpc(posR),
			Z:   u.FromKpc(posZ),
			Phi: posPhi,
		},
		VelCyl: coords.VelCyl{
			VR:   u.FromKpc(velR) / u.FromMyr(1),
			VZ:   u.FromKpc(velZ) / u.FromMyr(1),
			VPhi: u.FromKpc(velPhi) / u.FromMyr(1),
		},
	}
}

func runFind(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	pot, err := buildPotential(cfg)
	if err != nil {
		return err
	}
	u := cfg.GetUnits()
	finder := actions.NewFudgeFinder(pot)

	aa, freq, err := finder.ActionAnglesFrequencies(pointFromFlags(u))
	if err != nil {
		return err
	}
	fmt.Printf("actions     Jr=%.6f  Jz=%.6f  Jphi=%.6f  [kpc²/Myr]\n",
		u.ToAction(aa.Jr), u.ToAction(aa.Jz), u.ToAction(aa.Jphi))
	fmt.Printf("angles      θr=%.6f  θz=%.6f  θφ=%.6f  [rad]\n",
		aa.Thetar, aa.Thetaz, aa.Thetaphi)
	fmt.Printf("frequencies Ωr=%.6f  Ωz=%.6f  Ωφ=%.6f  [1/Myr]\n",
		u.ToFrequency(freq.Omegar), u.ToFrequency(freq.Omegaz), u.ToFrequency(freq.Omegaphi))
	return nil
}

func runMap(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	pot, err := buildPotential(cfg)
	if err != nil {
		return err
	}
	u := cfg.GetUnits()
	mapper := actions.NewTorusMapperWith(pot, cfg.GetTorusOptions())

	xv, freq, err := mapper.MapWithFrequencies(actions.ActionAngles{
		Actions: cfg.GetActions(),
		Angles:  actions.Angles{Thetar: angR, Thetaz: angZ, Thetaphi: angPhi},
	})
	if err != nil {
		return err
	}
	fmt.Printf("position    R=%.6f  z=%.6f  φ=%.6f  [kpc, rad]\n",
		u.ToKpc(xv.R), u.ToKpc(xv.Z), xv.Phi)
	fmt.Printf("velocity    vR=%.6f  vz=%.6f  vφ=%.6f  [kpc/Myr]\n",
		u.ToKpc(xv.VR)/u.ToMyr(1), u.ToKpc(xv.VZ)/u.ToMyr(1), u.ToKpc(xv.VPhi)/u.ToMyr(1))
	fmt.Printf("frequencies Ωr=%.6f  Ωz=%.6f  Ωφ=%.6f  [1/Myr]\n",
		u.ToFrequency(freq.Omegar), u.ToFrequency(freq.Omegaz), u.ToFrequency(freq.Omegaphi))
	return nil
}

func runOrbit(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	pot, err := buildPotential(cfg)
	if err != nil {
		return err
	}
	u := cfg.GetUnits()

	var integ orbit.Integrator
	switch orbitScheme {
	case "leapfrog":
		integ = orbit.NewLeapfrog()
	case "rk4":
		integ = orbit.NewRK4()
	default:
		return fmt.Errorf("unknown integrator %q", orbitScheme)
	}

	ctx, cancel := signalContext()
	defer cancel()

	res, err := orbit.Integrate(ctx, pot, pointFromFlags(u), orbit.Options{
		Dt:          u.FromMyr(orbitDt),
		Duration:    u.FromMyr(orbitTime),
		Integrator:  integ,
		OutputEvery: orbitEvery,
	})
	if err != nil {
		return err
	}
	slog.Info("orbit integrated", "steps", res.StepsTaken,
		"energy_drift", res.EnergyDrift, "integrator", integ.Name())
	for i, s := range res.States {
		fmt.Printf("%10.2f  %9.5f  %9.5f  %9.5f\n",
			u.ToMyr(res.Times[i]), u.ToKpc(s.R), u.ToKpc(s.Z), s.Phi)
	}
	return nil
}
