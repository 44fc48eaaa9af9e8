// reacher-mcu runs an operant-conditioning rig: it samples two levers and a
// lick sensor, drives the cue speaker, infusion pump, laser and imaging
// trigger, and exchanges line-oriented commands and event records with a
// host over a serial link.
//
// Usage:
//
//	reacher-mcu run -c /etc/reacher/config.yaml
//	reacher-mcu check -t outputs
//	reacher-mcu ports
//	reacher-mcu version
package main

func main() {
	Execute()
}
