// main.go - process entry point. Wires the scene, camera, render engine
// and UI frontend together, replacing the teacher's emulator-specific
// flag set with the ones this domain needs.

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
)

func main() {
	width := flag.Int("width", 1280, "output width in pixels")
	height := flag.Int("height", 720, "output height in pixels")
	shaderPath := flag.String("shader", "shaders/trace.comp.spv", "path to the compiled compute shader")
	title := flag.String("title", "vkpath", "window title (windowed build only)")
	headless := flag.Bool("headless", false, "drive the renderer from a terminal instead of opening a window")
	flag.Parse()

	if err := run(*width, *height, *shaderPath, *title, *headless); err != nil {
		log.Printf("fatal: %v", err)
		os.Exit(1)
	}
}

func run(width, height int, shaderPath, title string, headless bool) error {
	scene := NewScene()
	camera := NewCamera(
		Vec3{0, 5, 15}, Vec3{0, 2, 0}, Vec3{0, 1, 0},
		60, float32(width)/float32(height),
	)

	engine, err := NewRenderEngine(width, height, shaderPath)
	if err != nil {
		return fmt.Errorf("render engine init: %w", err)
	}
	engine.Start()
	defer engine.Stop()

	ui := newUIFrontend(headless)
	if err := ui.Start(width, height, title); err != nil {
		return fmt.Errorf("ui frontend start: %w", err)
	}
	defer ui.Stop()

	controller := NewUIController(scene, camera, engine, ui, NewGLTFMeshLoader())
	controller.RebuildScene() // empty scene: its empty package keeps the dummy GPU buffers bound
	controller.Run()
	return nil
}
