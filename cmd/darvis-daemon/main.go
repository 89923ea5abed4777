package main

import (
	"context"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lmittmann/tint"
	log "log/slog"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"darvis/internal/ai"
	"darvis/internal/apps"
	"darvis/internal/audio"
	"darvis/internal/config"
	"darvis/internal/ipc"
	"darvis/internal/mirror"
	"darvis/internal/notify"
	"darvis/internal/proxy"
	"darvis/internal/router"
	"darvis/internal/speech"
	"darvis/internal/statusbar"
	"darvis/internal/tts"
)

var logLevelMap = map[string]log.Level{
	"debug": log.LevelDebug,
	"info":  log.LevelInfo,
	"warn":  log.LevelWarn,
	"error": log.LevelError,
}

type daemon struct {
	cfg      *config.Config
	router   *router.Router
	assist   *ai.Manager
	recorder *audio.Recorder
	ducker   *audio.Ducker
	stt      speech.Transcriber
	status   *statusbar.Waybar
	hub      *mirror.Hub

	busy atomic.Bool
}

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	cfgPath := cli.StringP("config", "c", "", "Config file path")
	logLevel := cli.StringP("log", "l", "info", "Log level")
	wake := cli.BoolP("wake", "w", false, "Enable the wake-word listening loop")
	mirrorAddr := cli.StringP("mirror", "m", "", "Chat mirror listen address (overrides config)")
	proxyAddr := cli.StringP("proxy", "p", "", "SOCKS proxy for the cloud STT client")
	socket := cli.StringP("socket", "s", ipc.SocketPath, "Control socket path")
	cli.Parse()

	log.SetDefault(log.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level: logLevelMap[*logLevel],
	})))

	log.Info("Booting up")

	godotenv.Load(*envFile)

	path := *cfgPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			log.Error("Failed to resolve config path", "err", err)
			os.Exit(1)
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	if *mirrorAddr != "" {
		cfg.Mirror.Addr = *mirrorAddr
	}

	d := &daemon{cfg: cfg}

	d.assist = ai.NewManager(ai.Options{
		Command:  cfg.AI.Command,
		Agent:    cfg.Agent,
		Timeout:  time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
		Continue: ai.ContinueMode(cfg.AI.Continuation),
	})

	if cfg.Statusbar {
		d.status = statusbar.Setup()
	} else {
		d.status = &statusbar.Waybar{}
	}
	defer d.status.Close()

	launcher := apps.NewLauncher(cfg.WebServices)
	d.router = router.New(launcher, d.assist, d.status)

	d.recorder = audio.NewRecorder()
	if err := d.recorder.Init(); err != nil {
		log.Error("Failed to init audio", "err", err)
		os.Exit(1)
	}
	defer d.recorder.Close()

	if cfg.Audio.Duck {
		d.ducker = audio.NewDucker([]string{"darvis"}, 0.3)
	}

	d.stt, err = buildTranscriber(cfg, *proxyAddr)
	if err != nil {
		log.Error("Failed to init speech engine", "engine", cfg.STT.Engine, "err", err)
		os.Exit(1)
	}
	defer d.stt.Close()

	if cfg.Mirror.Addr != "" {
		d.hub = mirror.NewHub()
		d.hub.OnInbound = d.handleInbound
		go func() {
			if err := d.hub.ListenAndServe(cfg.Mirror.Addr); err != nil {
				log.Error("Mirror server stopped", "err", err)
			}
		}()
		log.Info("Chat mirror listening", "addr", cfg.Mirror.Addr)
	}

	if err := ipc.StartServer(*socket, d.handleControl); err != nil {
		log.Error("Failed ipc server", "err", err)
		os.Exit(1)
	}

	if *wake {
		go d.wakeLoop()
	}

	log.Info("Boot up - successful")
	select {}
}

func buildTranscriber(cfg *config.Config, proxyAddr string) (speech.Transcriber, error) {
	if cfg.STT.Engine == "cloud" {
		opts := []option.RequestOption{}
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			opts = append(opts, option.WithAPIKey(key))
		}
		if proxyAddr != "" {
			httpClient, err := proxy.NewSocksClient(proxyAddr, 120*time.Second)
			if err != nil {
				return nil, err
			}
			opts = append(opts, option.WithHTTPClient(httpClient))
		}
		client := openai.NewClient(opts...)
		return speech.NewCloud(client, cfg.STT.Language), nil
	}
	return speech.NewWhisper(cfg.STT.Model, cfg.STT.Language)
}

func (d *daemon) handleControl(msg ipc.ControlMessage) {
	switch msg.Cmd {
	case "trigger":
		go d.handleTrigger()
	case "run":
		go d.handleText(msg.Arg)
	case "cancel":
		cancelled := d.assist.Cancel()
		log.Info("Cancel requested", "cancelled", cancelled)
	case "reset":
		d.assist.Reset()
		d.mirrorSystem("Conversation reset")
		log.Info("Session reset")
	default:
		log.Warn("Unknown command", "cmd", msg.Cmd)
	}
}

func (d *daemon) handleInbound(in mirror.Inbound) {
	switch in.Type {
	case "command":
		go d.handleText(in.Text)
	case "cancel":
		d.assist.Cancel()
	case "reset":
		d.assist.Reset()
		d.mirrorSystem("Conversation reset")
	}
}

// handleTrigger runs the voice path: chime, capture, transcribe, route.
func (d *daemon) handleTrigger() {
	if !d.busy.CompareAndSwap(false, true) {
		log.Debug("Trigger ignored, already capturing")
		return
	}
	defer d.busy.Store(false)

	d.status.Update("listening", "Listening")
	if d.cfg.Audio.Chime != "" {
		if err := notify.Chime(d.cfg.Audio.Chime); err != nil {
			log.Debug("chime failed", "err", err)
		}
	}

	ctx := context.Background()
	if d.ducker != nil {
		d.ducker.Duck(ctx)
	}
	pcm, err := d.recorder.Record()
	if d.ducker != nil {
		d.ducker.Unduck(ctx)
	}
	if err != nil {
		log.Info("Nothing captured", "err", err)
		d.status.Update("idle", "No input heard")
		d.mirrorSystem("No input heard")
		tts.Speak("No input heard")
		return
	}

	d.status.Update("processing", "Transcribing")
	tctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	text, err := d.stt.Transcribe(tctx, pcm)
	cancel()
	if err != nil {
		log.Error("Transcription failed", "err", err)
		d.status.Update("error", "Transcription failed")
		return
	}
	if strings.TrimSpace(text) == "" {
		d.status.Update("idle", "No command heard")
		d.mirrorSystem("No command heard")
		return
	}

	log.Info("Transcribed", "text", text)
	d.dispatch(text)
}

// handleText runs the manual path used by the control socket and the
// chat mirror.
func (d *daemon) handleText(text string) {
	if strings.TrimSpace(text) == "" {
		return
	}
	d.dispatch(text)
}

func (d *daemon) dispatch(text string) {
	d.mirrorMessage(mirror.Message{Role: "user", Text: text, Time: time.Now()})

	out := d.router.Route(context.Background(), text)
	log.Info("Routed", "kind", out.Kind, "session", out.SessionID)

	d.mirrorMessage(mirror.Message{
		Role:      "assistant",
		Kind:      out.Kind.String(),
		Text:      out.Text,
		SessionID: out.SessionID,
		Time:      time.Now(),
	})

	d.status.Update("speaking", "Speaking")
	tts.Speak(out.Text)
	d.status.Update("idle", "Ready")
}

func (d *daemon) mirrorSystem(text string) {
	d.mirrorMessage(mirror.Message{Role: "system", Text: text, Time: time.Now()})
}

func (d *daemon) mirrorMessage(m mirror.Message) {
	if d.hub != nil {
		d.hub.Broadcast(m)
	}
}

// wakeLoop listens continuously for a wake phrase and fires the voice
// path when one is heard.
func (d *daemon) wakeLoop() {
	log.Info("Wake-word loop running", "words", d.cfg.Wake.Words)
	for {
		if d.busy.Load() {
			time.Sleep(500 * time.Millisecond)
			continue
		}

		pcm, err := d.recorder.RecordWindow(2 * time.Second)
		if err != nil {
			log.Debug("wake capture failed", "err", err)
			time.Sleep(time.Second)
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		text, err := d.stt.Transcribe(ctx, pcm)
		cancel()
		if err != nil || text == "" {
			continue
		}

		lower := strings.ToLower(text)
		for _, word := range d.cfg.Wake.Words {
			if strings.Contains(lower, word) {
				log.Info("Wake word detected", "heard", text)
				d.handleTrigger()
				break
			}
		}
	}
}
