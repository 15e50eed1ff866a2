package main

import (
	"fmt"
	"io"
	"io/ioutil"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/mrdg/patch/audio"
)

type env struct {
	registry *audio.Registry
	synth    *audio.Instrument
	timeline *audio.Timeline
	tempo    *audio.PropsTempo

	// content under construction, pushed to the render thread on change
	notes []audio.Note
	loop  float64
}

func (e *env) syncContent() {
	notes := make([]audio.Note, len(e.notes))
	copy(notes, e.notes)
	e.timeline.EnqueueContent(notes, e.loop)
}

func (e *env) eval(input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}
	name, args := parts[0], parts[1:]
	for _, cmd := range commands {
		if name != cmd.name {
			continue
		}
		if len(args) < cmd.minArgs {
			return fmt.Errorf("%s: not enough arguments, want at least %d", cmd.name, cmd.minArgs)
		}
		if err := cmd.run(e, args); err != nil {
			return fmt.Errorf("%s: %w", cmd.name, err)
		}
		return nil
	}
	return fmt.Errorf("unknown command: %s", name)
}

func repl(env *env) error {
	rl, err := readline.New("> ")
	if err != nil {
		return err
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			fmt.Println(err)
			continue
		}
		if len(strings.TrimSpace(line)) == 0 {
			continue
		}
		if err := env.eval(line); err != nil {
			fmt.Println(err)
		}
	}
}

type command struct {
	name    string
	help    string
	run     func(e *env, args []string) error
	minArgs int
}

var commands []command

func init() {
	commands = []command{
		{"set", "set <device> <prop> <value>", setCommand, 3},
		{"get", "get <device> <prop>", getCommand, 2},
		{"preset", "preset <device> <name>", presetCommand, 2},
		{"bpm", "bpm <value>", bpmCommand, 1},
		{"gate", "gate <pitch> [velocity]", gateCommand, 1},
		{"ungate", "ungate <pitch>", ungateCommand, 1},
		{"note", "note <beat> <pitch> <duration>", noteCommand, 3},
		{"clear", "clear", clearCommand, 0},
		{"loop", "loop <beats>", loopCommand, 1},
		{"play", "play [beats|clock] [start]", playCommand, 0},
		{"stop", "stop", stopCommand, 0},
		{"pos", "pos", posCommand, 0},
		{"load", "load <device> <prop> <file>", loadCommand, 3},
		{"save", "save <device> <prop> <file>", saveCommand, 3},
		{"render", "render <file> <beats>", renderCommand, 2},
		{"help", "help", helpCommand, 0},
	}
}

func setCommand(e *env, args []string) error {
	dev, err := e.registry.Get(args[0])
	if err != nil {
		return err
	}
	if f, err := strconv.ParseFloat(args[2], 64); err == nil {
		return dev.Set(args[1], f)
	}
	return dev.Set(args[1], args[2])
}

func getCommand(e *env, args []string) error {
	dev, err := e.registry.Get(args[0])
	if err != nil {
		return err
	}
	v, err := dev.Get(args[1])
	if err != nil {
		return err
	}
	fmt.Println(v)
	return nil
}

func presetCommand(e *env, args []string) error {
	dev, err := e.registry.Get(args[0])
	if err != nil {
		return err
	}
	return audio.LoadPreset(args[1], dev)
}

func bpmCommand(e *env, args []string) error {
	dev, err := e.registry.Get("time")
	if err != nil {
		return err
	}
	bpm, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return err
	}
	return dev.Set("bpm", bpm)
}

func gateCommand(e *env, args []string) error {
	pitch, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	velocity := 100
	if len(args) > 1 {
		if velocity, err = strconv.Atoi(args[1]); err != nil {
			return err
		}
	}
	e.synth.Attack(pitch, velocity)
	return nil
}

func ungateCommand(e *env, args []string) error {
	pitch, err := strconv.Atoi(args[0])
	if err != nil {
		return err
	}
	e.synth.Release(pitch)
	return nil
}

func noteCommand(e *env, args []string) error {
	beat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return err
	}
	pitch, err := strconv.Atoi(args[1])
	if err != nil {
		return err
	}
	duration, err := strconv.ParseFloat(args[2], 64)
	if err != nil {
		return err
	}
	if pitch < 1 || pitch > 127 {
		return fmt.Errorf("pitch out of range: %d", pitch)
	}
	e.notes = append(e.notes, audio.Note{Beat: beat, Pitch: pitch, Velocity: 100, Duration: duration})
	e.syncContent()
	return nil
}

func clearCommand(e *env, args []string) error {
	e.notes = nil
	e.syncContent()
	return nil
}

func loopCommand(e *env, args []string) error {
	beats, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return err
	}
	if beats < 0 {
		return fmt.Errorf("loop length must be >= 0")
	}
	e.loop = beats
	e.syncContent()
	return nil
}

func playCommand(e *env, args []string) error {
	params := audio.StartParams{Mode: audio.GlobalBeat, StartBeat: -1}
	if len(args) > 0 {
		switch args[0] {
		case "beats":
			params.Mode = audio.GlobalBeat
		case "clock":
			params.Mode = audio.LocalTempo
		default:
			return fmt.Errorf("unknown time base: %s", args[0])
		}
	}
	if len(args) > 1 {
		start, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return err
		}
		params.StartBeat = start
	}
	e.timeline.EnqueuePlay(params)
	return nil
}

func stopCommand(e *env, args []string) error {
	e.timeline.EnqueueStop()
	return nil
}

func posCommand(e *env, args []string) error {
	fmt.Printf("%.3f\n", e.timeline.Position())
	return nil
}

func loadCommand(e *env, args []string) error {
	dev, err := e.registry.Get(args[0])
	if err != nil {
		return err
	}
	data, err := ioutil.ReadFile(args[2])
	if err != nil {
		return err
	}
	cfg, err := audio.ParseEnvelope(data)
	if err != nil {
		return err
	}
	return dev.Set(args[1], cfg)
}

func saveCommand(e *env, args []string) error {
	dev, err := e.registry.Get(args[0])
	if err != nil {
		return err
	}
	v, err := dev.Get(args[1])
	if err != nil {
		return err
	}
	cfg, ok := v.(*audio.Config)
	if !ok {
		return fmt.Errorf("property %s is not an envelope", args[1])
	}
	data, err := audio.MarshalEnvelope(*cfg)
	if err != nil {
		return err
	}
	return ioutil.WriteFile(args[2], data, 0644)
}

func renderCommand(e *env, args []string) error {
	beats, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return err
	}
	if beats <= 0 {
		return fmt.Errorf("render length must be positive")
	}
	notes := make([]audio.Note, len(e.notes))
	copy(notes, e.notes)
	return renderToFile(args[0], e.synth.Props, e.tempo.BPM(), notes, e.loop, beats)
}

func helpCommand(e *env, args []string) error {
	for _, cmd := range commands {
		fmt.Println(cmd.help)
	}
	return nil
}
