// Package config holds the robot's single parameterised configuration.
//
// The defaults are the competition calibration.  Named profiles are small
// overlays on the defaults; a YAML file and then the environment are
// applied on top.
package config

import (
	"os"
	"sort"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/competition"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/drivermode"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/hardware"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/motion"
	"github.com/tigerbot-team/tigerbot/cata-controller/pkg/telemetry"
)

var log = logrus.WithField("component", "config")

var ErrInvalid = errors.New("invalid configuration")

const (
	DefaultFile  = "/cfg/robot.yaml"
	InUseFile    = "/cfg/robot-in-use.yaml"
	DefaultPad   = "/dev/input/js0"
	DefaultLevel = "info"
)

type AutonomousConfig struct {
	// Routine names a built-in routine; RoutineFile, if set, wins.
	Routine     string `yaml:"routine"`
	RoutineFile string `yaml:"routineFile"`
}

type RobotConfig struct {
	Profile  string `yaml:"profile"`
	LogLevel string `yaml:"logLevel"`

	Ports   hardware.PortMap      `yaml:"ports"`
	Devices hardware.DeviceConfig `yaml:"devices"`

	Drivetrain motion.Drivetrain         `yaml:"drivetrain"`
	Linear     motion.ControllerSettings `yaml:"linear"`
	Angular    motion.ControllerSettings `yaml:"angular"`

	Driver     drivermode.Config  `yaml:"driver"`
	Telemetry  telemetry.Config   `yaml:"telemetry"`
	Autonomous AutonomousConfig   `yaml:"autonomous"`
	Match      competition.Timing `yaml:"match"`

	JoystickDevice string `yaml:"joystickDevice"`
	Framebuffer    string `yaml:"framebuffer"`
}

func Default() RobotConfig {
	return RobotConfig{
		Profile:        "match",
		LogLevel:       DefaultLevel,
		Ports:          hardware.DefaultPortMap(),
		Devices:        hardware.DefaultDeviceConfig(),
		Drivetrain:     motion.DefaultDrivetrain(),
		Linear:         motion.DefaultLinearSettings(),
		Angular:        motion.DefaultAngularSettings(),
		Driver:         drivermode.DefaultConfig(),
		Telemetry:      telemetry.DefaultConfig(),
		Autonomous:     AutonomousConfig{Routine: "match"},
		Match:          competition.DefaultTiming(),
		JoystickDevice: DefaultPad,
		Framebuffer:    "/dev/fb1",
	}
}

// profiles are overlays on the defaults.
var profiles = map[string]func(c *RobotConfig){
	"match": func(c *RobotConfig) {},
	// Skills runs are a minute each, and start from the same routine.
	"skills": func(c *RobotConfig) {
		c.Match.Autonomous = 60 * time.Second
		c.Match.DriverControl = 60 * time.Second
	},
	// Legacy reproduces the intake buttons exactly as they shipped.
	"legacy": func(c *RobotConfig) {
		c.Driver.IntakeMapping = drivermode.IntakeSelfGated
	},
}

func Profiles() []string {
	var names []string
	for n := range profiles {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// ForProfile returns the defaults with the named profile applied.
func ForProfile(name string) (RobotConfig, error) {
	c := Default()
	overlay, ok := profiles[name]
	if !ok {
		return c, errors.Wrapf(ErrInvalid, "unknown profile %q", name)
	}
	overlay(&c)
	c.Profile = name
	return c, nil
}

// Load builds the effective configuration: defaults, then the profile,
// then the YAML file at filename (if it exists), then the environment.
// An empty profile means ROBOT_PROFILE or "match".
func Load(filename, profile string) (RobotConfig, error) {
	if profile == "" {
		profile = GetStringEnv("ROBOT_PROFILE", "match")
	}
	c, err := ForProfile(profile)
	if err != nil {
		return c, err
	}

	if filename != "" {
		data, err := os.ReadFile(filename)
		switch {
		case os.IsNotExist(err):
			log.WithField("file", filename).Info("No config file, using defaults")
		case err != nil:
			return c, errors.Wrap(err, "failed to read config")
		default:
			if err := yaml.Unmarshal(data, &c); err != nil {
				return c, errors.Wrapf(ErrInvalid, "%s: %v", filename, err)
			}
			log.WithField("file", filename).Info("Loaded config")
		}
	}
	// The file cannot change the profile after the overlay was chosen.
	c.Profile = profile

	c.applyEnv()
	if err := c.Validate(); err != nil {
		return c, err
	}
	return c, nil
}

func (c *RobotConfig) applyEnv() {
	c.JoystickDevice = GetStringEnv("JOYSTICK_DEVICE", c.JoystickDevice)
	c.LogLevel = GetStringEnv("LOG_LEVEL", c.LogLevel)
	c.Telemetry.SerialPort = GetStringEnv("TELEMETRY_SERIAL", c.Telemetry.SerialPort)
	c.Telemetry.BaudRate = GetIntEnv("TELEMETRY_BAUD", c.Telemetry.BaudRate)
	c.Devices.Sounds = GetBoolEnv("ROBOT_SOUNDS", c.Devices.Sounds)
	c.Drivetrain.ChasePower = GetFloatEnv("CHASE_POWER", c.Drivetrain.ChasePower)
}

func (c RobotConfig) Validate() error {
	check := func(what string, err error) error {
		if err == nil {
			return nil
		}
		return errors.Wrapf(ErrInvalid, "%s: %v", what, err)
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return check("log level", err)
	}
	if err := check("ports", c.Ports.Validate()); err != nil {
		return err
	}
	if err := check("drivetrain", c.Drivetrain.Validate()); err != nil {
		return err
	}
	if err := check("linear controller", c.Linear.Validate()); err != nil {
		return err
	}
	if err := check("angular controller", c.Angular.Validate()); err != nil {
		return err
	}
	if err := check("driver control", c.Driver.Validate()); err != nil {
		return err
	}
	if err := check("telemetry", c.Telemetry.Validate()); err != nil {
		return err
	}
	if c.Match.Autonomous <= 0 || c.Match.DriverControl <= 0 {
		return errors.Wrap(ErrInvalid, "match phases must have positive length")
	}
	if c.Autonomous.Routine == "" && c.Autonomous.RoutineFile == "" {
		return errors.Wrap(ErrInvalid, "no autonomous routine selected")
	}
	return nil
}

// ApplyLogLevel sets the global logrus level.
func (c RobotConfig) ApplyLogLevel() error {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return errors.Wrapf(ErrInvalid, "log level: %v", err)
	}
	logrus.SetLevel(level)
	return nil
}

// WriteInUse records the effective configuration so it can be copied back
// into the config file after tuning.
func (c RobotConfig) WriteInUse(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}
	if err := os.WriteFile(filename, data, 0666); err != nil {
		return errors.Wrap(err, "failed to write config")
	}
	return nil
}
