// Package insectbot drives a three servo insect robot: two leg joints that
// swing the front and rear legs and one middle joint that bends the body.
//
// The gait sequencer turns four locomotion primitives (forward, backward,
// turn left, turn right) into single degree servo steps, choosing the stroke
// order that wastes the least motion. A distance sensor and two light sensors
// feed reactive behaviors.
//
// # Installation
//
//	go install github.com/gwillem/insectbot/cmd/insectbot@latest
//
// # Usage
//
// First, run setup to find the servo bus and sensor board and identify the
// joints:
//
//	insectbot setup
//
// Then drive it, or try it without hardware:
//
//	insectbot teleoperate
//	insectbot teleoperate --sim --behavior avoid
//
// # Packages
//
// The module is organized into the following packages:
//
//   - cmd/insectbot: CLI with setup, teleoperate and info commands
//   - pkg/robot: Servo and sensor backends, calibration and configuration
//   - pkg/gait: Motion primitive, cost model and gait planner
//   - pkg/sensing: Cached distance and brightness readings
//   - pkg/insect: The robot's public surface with lazy setup
//   - pkg/teleop: Control loop with manual and reactive behaviors
package insectbot
