package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"runtime"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/irfansharif/scenery/internal/app"
	"github.com/irfansharif/scenery/internal/collection"
	"github.com/irfansharif/scenery/internal/config"
	"github.com/irfansharif/scenery/internal/memory"
	"github.com/irfansharif/scenery/internal/palette"
	"github.com/irfansharif/scenery/internal/render"
)

const logFlags = log.Ltime | log.Lshortfile

var runtimeLogger *log.Logger = log.New(io.Discard, "", 0)

var (
	configPath = flag.String("config", "scenery.toml", "path to the TOML config file")
	dumpConfig = flag.Bool("dump-config", false, "print the effective config and exit")
)

func init() {
	// OpenGL contexts are tied to specific OS threads - let's pin to just one.
	runtime.LockOSThread()
	log.SetFlags(logFlags)

	if os.Getenv("SCENERY_DEBUG_RUNTIME") == "1" {
		runtimeLogger = log.New(os.Stdout, "[runtime] ", log.Ltime|log.Lmsgprefix)
	}
}

func makeTitle(title string, fps, avgFrameTime float64, cs collection.Stats, rs render.Stats, ms memory.Stats) string {
	return fmt.Sprintf("%s (%.1f FPS, %.2fms/frame, %d instances, %d selected, %d draws/frame, %d meshes, %d triangles, %.1fMiB GPU)",
		title,
		fps,
		avgFrameTime,
		cs.Instances,
		cs.Selected,
		rs.Draws,
		ms.TotalMeshes,
		ms.TotalVertices/3,
		float64(ms.TotalGPUBytes)/(1024.0*1024.0),
	)
}

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Scene.Seed == 0 {
		cfg.Scene.Seed = time.Now().Unix()
	}
	if *dumpConfig {
		out, err := cfg.Encode()
		if err != nil {
			log.Fatalf("Failed to encode config: %v", err)
		}
		os.Stdout.Write(out)
		return
	}
	highlight, err := palette.ParseHex(cfg.Render.HighlightColor)
	if err != nil {
		log.Fatalf("Invalid highlight color: %v", err)
	}
	background, err := palette.ParseHex(cfg.Render.Background)
	if err != nil {
		log.Fatalf("Invalid background color: %v", err)
	}
	runtimeLogger.Printf("seed %d, %d instances", cfg.Scene.Seed, cfg.Scene.Instances)

	if err := glfw.Init(); err != nil {
		log.Fatalf("Failed to initialize GLFW: %v", err)
	}
	defer glfw.Terminate()

	// Configure GLFW window hints - use OpenGL 4.1.
	glfw.DefaultWindowHints()
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.Samples, cfg.Window.Samples)

	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		log.Fatalf("Failed to create window: %v", err)
	}
	window.MakeContextCurrent()

	if err := gl.Init(); err != nil {
		log.Fatalf("Failed to initialize OpenGL: %v", err)
	}
	if cfg.Window.Samples > 0 {
		gl.Enable(gl.MULTISAMPLE)
	}

	memController := memory.NewController(memory.GLBackend{})
	defer memController.Cleanup()

	renderer, err := render.NewRenderer(memController, highlight)
	if err != nil {
		log.Fatalf("Failed to create renderer: %v", err)
	}
	defer renderer.Cleanup()
	if err := renderer.RegisterShader(app.FlatShader, render.FlatFragmentShaderSource); err != nil {
		log.Fatalf("Failed to register flat shader: %v", err)
	}

	application, err := app.NewApp(cfg, app.NewKeyboardInterpreter(), memController)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	cw, ch := window.GetFramebufferSize()
	application.View.SetViewport(cw, ch)
	renderer.SetViewport(cw, ch)

	// Initialize event handlers.
	NewEventHandlers(window, application, renderer)

	rc := collection.RenderContext{
		Drawer:              renderer,
		Highlighter:         renderer,
		Shaders:             renderer,
		SelectionShaderUsed: cfg.Render.SelectionShader,
	}

	frameCount, frameTimeSum := 0, 0.0
	lastFPSUpdate := time.Now()

	// Main loop.
	for !window.ShouldClose() {
		frameStart := time.Now()

		renderer.SetCamera(application.View.ViewMatrix(), application.View.ProjectionMatrix())
		renderer.BeginFrame(background)
		if err := application.Render(rc); err != nil {
			log.Printf("WARNING: render: %v", err)
		}
		renderer.EndFrame()

		window.SwapBuffers()
		glfw.PollEvents()

		frameTime := time.Since(frameStart).Seconds() * 1000.0 // ms
		frameTimeSum += frameTime

		frameCount++
		now := time.Now()
		if now.Sub(lastFPSUpdate) >= time.Second {
			fps := float64(frameCount) / now.Sub(lastFPSUpdate).Seconds()
			avgFrameTime := frameTimeSum / float64(frameCount)
			frameCount, frameTimeSum = 0, 0.0
			lastFPSUpdate = now

			collStats := application.Collection.Stats()
			memStats := memController.Stats()
			renderStats := renderer.Stats()

			window.SetTitle(makeTitle(cfg.Window.Title, fps, avgFrameTime, collStats, renderStats, memStats))

			runtimeLogger.Println("=== Performance statistics ===")
			runtimeLogger.Printf("Frame rate:     %.1f FPS (%.2f ms/frame, %.2f µs last frame)", fps, avgFrameTime, renderStats.LastFrameUs)
			runtimeLogger.Printf("Instances:      %d (%d drawable, %d opaque, %d transparent, %d selected, %d in %d shader groups)",
				collStats.Instances, collStats.Drawable, collStats.NotTransparent, collStats.Transparent,
				collStats.Selected, collStats.ShaderGrouped, collStats.ShaderGroups)
			runtimeLogger.Printf("Draws:          %d last frame, %d total, %d errors (last: %v)", renderStats.Draws, collStats.DrawCalls, collStats.DrawErrors, collStats.LastDrawError)
			runtimeLogger.Printf("GPU memory:     %.2f MiB, %d meshes, %d uploads (%d failed)", float64(memStats.TotalGPUBytes)/(1024.0*1024.0), memStats.TotalMeshes, memStats.Uploads, renderStats.UploadFailures)
			runtimeLogger.Printf("Compaction:     %d events (%d slots relocated, %d batches released), %.2f μs (last)", memStats.CompactionEvents, memStats.SlotsRelocated, memStats.BatchReleases, memStats.LastCompactionTimeUs)
			runtimeLogger.Println("==============================")

			memController.PrintStats()
		}

		if err := application.Maintain(); err != nil {
			log.Fatalf("Maintenance failed: %v", err)
		}
	}
}
