package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/mrdg/patch/audio"
)

func main() {
	var (
		bpm    = flag.Float64("bpm", 120, "initial tempo")
		preset = flag.String("preset", "", "synth preset to load at startup")
		run    = flag.String("run", "", "script of commands to run before the repl starts")
	)
	flag.Parse()

	synthProps := audio.NewProps()
	synth := audio.Synth(synthProps)

	timeProps := audio.NewProps()
	tempo := audio.NewPropsTempo(timeProps, *bpm)

	sched := audio.NewScheduler()
	timeline := audio.NewTimeline(sched, tempo,
		func(pitch, velocity, offset int) { synth.PlayNote(offset, pitch, velocity) },
		func(pitch, velocity, offset int) { synth.StopNote(offset, pitch) },
	)

	registry := audio.NewRegistry()
	if err := registry.Add("synth", synth); err != nil {
		log.Fatal(err)
	}
	if err := registry.Add("time", timeProps); err != nil {
		log.Fatal(err)
	}

	if *preset != "" {
		if err := audio.LoadPreset(*preset, synth); err != nil {
			log.Fatal(err)
		}
	}

	sink, err := audio.NewSink()
	if err != nil {
		log.Fatal(err)
	}
	sink.AddTicker(timeline)
	sink.AddSources(synth)
	if err := sink.Start(); err != nil {
		log.Fatal(err)
	}
	defer sink.Stop()

	env := &env{
		registry: registry,
		synth:    synth,
		timeline: timeline,
		tempo:    tempo,
	}

	if *run != "" {
		f, err := os.Open(*run)
		if err != nil {
			log.Fatal(err)
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line == "" || strings.HasPrefix(line, "#") {
				continue
			}
			if err := env.eval(line); err != nil {
				log.Fatal(err)
			}
		}
		if err := scanner.Err(); err != nil {
			log.Fatal(err)
		}
		f.Close()
	}

	if err := repl(env); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
