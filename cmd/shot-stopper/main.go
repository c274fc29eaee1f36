// Command shot-stopper runs the weight-triggered espresso brew controller:
// it polls the brew switch, tracks the scale over the MQTT bridge, and stops
// the shot at the predicted goal weight.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sweeney/shot-stopper/internal/config"
	"github.com/sweeney/shot-stopper/internal/gpio"
	"github.com/sweeney/shot-stopper/internal/logic"
	"github.com/sweeney/shot-stopper/internal/mailbox"
	"github.com/sweeney/shot-stopper/internal/mqtt"
	"github.com/sweeney/shot-stopper/internal/scale"
	"github.com/sweeney/shot-stopper/internal/status"
	"github.com/sweeney/shot-stopper/internal/web"
)

func main() {
	poll := flag.Duration("poll", 5*time.Millisecond, "Control loop interval")
	statusInterval := flag.Duration("status-interval", 30*time.Second, "Retained MQTT status interval (0 to disable)")
	broker := flag.String("broker", "tcp://192.168.1.200:1883", "MQTT broker address")
	scaleID := flag.String("scale-id", "acaia", "Scale bridge identifier")
	httpAddr := flag.String("http", ":80", "HTTP status address (empty to disable)")
	configPath := flag.String("config", "/var/lib/shot-stopper/config.json", "Parameter store path")
	pinSwitch := flag.Int("pin-switch", gpio.DefaultPinSwitch, "BCM pin number for the brew switch")
	pinReed := flag.Int("pin-reed", gpio.DefaultPinReed, "BCM pin number for the reed contact")
	pinTrigger := flag.Int("pin-trigger", gpio.DefaultPinTrigger, "BCM pin number for the stop trigger")
	pinRed := flag.Int("pin-red", gpio.DefaultPinRed, "BCM pin number for the red LED")
	pinGreen := flag.Int("pin-green", gpio.DefaultPinGreen, "BCM pin number for the green LED")
	pinBlue := flag.Int("pin-blue", gpio.DefaultPinBlue, "BCM pin number for the blue LED")

	flag.Parse()

	err := run(*poll, *statusInterval, *broker, *scaleID, *httpAddr, *configPath,
		*pinSwitch, *pinReed, *pinTrigger, *pinRed, *pinGreen, *pinBlue)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(poll, statusInterval time.Duration, broker, scaleID, httpAddr, configPath string,
	pinSwitch, pinReed, pinTrigger, pinRed, pinGreen, pinBlue int) error {

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	settings := settingsFromConfig(cfg)

	// The reed contact and the mechanical switch are alternative inputs on
	// different pins; the config decides which one is wired.
	inputPin := pinSwitch
	if settings.ReedSwitch {
		inputPin = pinReed
	}
	sw, err := gpio.NewRealSwitch(inputPin)
	if err != nil {
		return fmt.Errorf("init switch gpio: %w", err)
	}
	defer sw.Close()

	trig, err := gpio.NewRealTrigger(pinTrigger)
	if err != nil {
		return fmt.Errorf("init trigger gpio: %w", err)
	}
	defer trig.Close()

	led, err := gpio.NewRealLED(pinRed, pinGreen, pinBlue)
	if err != nil {
		return fmt.Errorf("init led gpio: %w", err)
	}
	defer led.Close()

	sc := scale.NewLink(broker, scaleID)
	defer sc.Close()

	box := &mailbox.Box{}
	publisher, err := mqtt.NewRealClient(broker, box)
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer publisher.Close()

	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:     poll.Milliseconds(),
		StatusMs:   statusInterval.Milliseconds(),
		Broker:     broker,
		ScaleID:    scaleID,
		HTTPPort:   httpAddr,
		ConfigPath: configPath,
	})

	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := publisher.PublishSystem(startupEvent); err != nil {
		log.Printf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if httpAddr != "" {
		srv := web.New(httpAddr, tracker, cfg, box)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", httpAddr)
	}

	log.Printf("started: poll=%v broker=%s scale=%s goal=%.1fg offset=%.1fg",
		poll, broker, scaleID, settings.GoalWeight, settings.Offset)

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	var statusTick <-chan time.Time
	if statusInterval > 0 {
		statusTicker := time.NewTicker(statusInterval)
		defer statusTicker.Stop()
		statusTick = statusTicker.C
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	eng := logic.NewEngine(settings)
	verbose := cfg.Int("system.log_level") >= 4

	return runLoop(eng, sw, trig, led, sc, publisher, publisher, tracker, cfg, box,
		verbose, time.Now, ticker.C, statusTick, sigCh)
}

func runLoop(eng *logic.Engine, sw gpio.Switch, trig gpio.Trigger, led gpio.LED,
	sc scale.Scale, publisher mqtt.Publisher, mqttStatus mqtt.ConnectionStatus,
	tracker *status.Tracker, cfg *config.Store, box *mailbox.Box,
	verbose bool, now func() time.Time, tick, statusTick <-chan time.Time, sig <-chan os.Signal) error {

	var lastColor logic.Color

	// End of a pending stop-trigger pulse; zero when idle.
	var pulseUntil time.Time

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			// A pulse still in flight must not hold the machine on.
			if !pulseUntil.IsZero() {
				if err := trig.Set(false); err != nil {
					log.Printf("trigger release error: %v", err)
				}
			}
			event := mqtt.SystemEvent{
				Timestamp: now(),
				Event:     "SHUTDOWN",
				Reason:    signalName,
				Retained:  true,
			}
			if tracker != nil {
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
				snap := tracker.Snapshot()
				event.RawPayload = status.FormatStatusEvent(snap, "SHUTDOWN", signalName)
			}
			if err := publisher.PublishSystem(event); err != nil {
				log.Printf("failed to publish shutdown event: %v", err)
			} else {
				log.Printf("published shutdown event")
			}
			return nil

		case <-statusTick:
			if tracker == nil {
				continue
			}
			if mqttStatus != nil {
				tracker.SetMQTTConnected(mqttStatus.IsConnected())
			}
			if err := publisher.PublishStatus(status.FormatJSON(tracker.Snapshot())); err != nil {
				log.Printf("status publish error: %v", err)
			}

		case <-tick:
			t := now()

			drainMailbox(eng, cfg, box)

			raw, err := sw.Read()
			if err != nil {
				log.Printf("switch read error: %v", err)
				raw = false
			}

			in := logic.Input{
				Now:             t,
				RawSwitch:       raw,
				ScaleConnected:  sc.Connected(),
				ScaleConnecting: sc.Connecting(),
				HeartbeatDue:    sc.HeartbeatDue(),
			}
			if sc.NewWeightAvailable() {
				w := sc.Weight()
				in.Weight = &w
				if verbose {
					log.Printf("weight: %.2fg (elapsed=%v expected=%v)", w, eng.Elapsed(), eng.ExpectedEnd())
				}
			}

			res := eng.Tick(in)

			for _, eff := range res.Effects {
				applyEffect(eff, t, sc, trig, cfg, &pulseUntil)
			}
			if !pulseUntil.IsZero() && !t.Before(pulseUntil) {
				if err := trig.Set(false); err != nil {
					log.Printf("trigger release error: %v", err)
				}
				pulseUntil = time.Time{}
			}

			for _, ev := range res.Events {
				switch ev.Type {
				case logic.EventShotStarted:
					log.Printf("shot started (mode=%s)", modeString(ev.TimeMode))
				case logic.EventShotEnded:
					log.Printf("shot ended: reason=%s duration=%v weight=%.1fg", ev.Reason, ev.Duration, ev.FinalWeight)
					if tracker != nil {
						tracker.CountShot(ev.Reason)
					}
				case logic.EventOffsetAdjusted:
					log.Printf("offset adjusted: %.2fg (final weight %.1fg)", ev.Offset, ev.FinalWeight)
				case logic.EventOffsetRejected:
					log.Printf("offset unchanged: shot error too large (final weight %.1fg, offset %.2fg)", ev.FinalWeight, ev.Offset)
				}
				if err := publisher.PublishShot(ev); err != nil {
					log.Printf("publish error: %v", err)
					// Don't crash on publish failure
				}
			}

			if res.LED != lastColor {
				if err := led.Show(res.LED); err != nil {
					log.Printf("led error: %v", err)
				}
				lastColor = res.LED
			}

			if tracker != nil {
				tracker.Update(eng.Weight(), eng.Settings.GoalWeight, eng.Settings.Offset,
					eng.Brewing(), eng.Elapsed(), eng.ExpectedEnd(), eng.TimeOnly(), eng.Link())
				if mqttStatus != nil {
					tracker.SetMQTTConnected(mqttStatus.IsConnected())
				}
			}
		}
	}
}

// applyEffect executes one side-effect request against the real
// collaborators. Pulse requests only raise the trigger; the loop lowers it
// once now passes *pulseUntil, so the 5ms cadence is never slept through.
func applyEffect(eff logic.Effect, now time.Time, sc scale.Scale, trig gpio.Trigger, cfg *config.Store, pulseUntil *time.Time) {
	switch eff.Kind {
	case logic.EffectConnectScale:
		if err := sc.Connect(); err != nil {
			log.Printf("scale connect error: %v", err)
		}
	case logic.EffectAdvanceLink:
		sc.Advance()
	case logic.EffectHeartbeat:
		if err := sc.Heartbeat(); err != nil {
			log.Printf("scale heartbeat error: %v", err)
		}
	case logic.EffectTare:
		if err := sc.Tare(); err != nil {
			log.Printf("scale tare error: %v", err)
		}
	case logic.EffectResetTimer:
		if err := sc.ResetTimer(); err != nil {
			log.Printf("scale timer reset error: %v", err)
		}
	case logic.EffectStartTimer:
		if err := sc.StartTimer(); err != nil {
			log.Printf("scale timer start error: %v", err)
		}
	case logic.EffectStopTimer:
		if err := sc.StopTimer(); err != nil {
			log.Printf("scale timer stop error: %v", err)
		}
	case logic.EffectSetTrigger:
		if err := trig.Set(eff.Level); err != nil {
			log.Printf("trigger set error: %v", err)
		}
	case logic.EffectPulseTrigger:
		if err := trig.Set(true); err != nil {
			log.Printf("trigger pulse error: %v", err)
		}
		*pulseUntil = now.Add(eff.Duration)
	case logic.EffectPersistOffset:
		if err := cfg.Set("brew.weight_offset", eff.Value); err != nil {
			log.Printf("offset persist rejected: %v", err)
			return
		}
		if err := cfg.Save(); err != nil {
			log.Printf("offset persist error: %v", err)
		}
	}
}

// drainMailbox applies pending remote parameter writes to the live settings
// and the on-disk store. Each slot is last-write-wins; a value outside its
// registered bounds is logged and discarded.
func drainMailbox(eng *logic.Engine, cfg *config.Store, box *mailbox.Box) {
	changed := false

	apply := func(key string, v any, assign func()) {
		if err := cfg.Set(key, v); err != nil {
			log.Printf("remote write %s=%v rejected: %v", key, v, err)
			return
		}
		assign()
		changed = true
		log.Printf("remote write applied: %s=%v", key, v)
	}

	if v, ok := box.GoalWeight.Take(); ok {
		apply("brew.goal_weight", v, func() { eng.Settings.GoalWeight = v })
	}
	if v, ok := box.Momentary.Take(); ok {
		apply("switch.momentary", v, func() { eng.Settings.Momentary = v })
	}
	if v, ok := box.ReedSwitch.Take(); ok {
		apply("switch.reedcontact", v, func() { eng.Settings.ReedSwitch = v })
	}
	if v, ok := box.AutoTare.Take(); ok {
		apply("scale.auto_tare", v, func() { eng.Settings.AutoTare = v })
	}
	if v, ok := box.ByTimeOnly.Take(); ok {
		apply("brew.by_time_only", v, func() { eng.Settings.ByTimeOnly = v })
	}
	if v, ok := box.TargetTime.Take(); ok {
		apply("brew.target_time", v, func() { eng.Settings.TargetTime = secondsToDuration(v) })
	}
	if v, ok := box.MinShotDuration.Take(); ok {
		apply("brew.min_shot_duration", v, func() { eng.Settings.MinShotDuration = secondsToDuration(v) })
	}
	if v, ok := box.MaxShotDuration.Take(); ok {
		apply("brew.max_shot_duration", v, func() { eng.Settings.MaxShotDuration = secondsToDuration(v) })
	}
	if v, ok := box.DripDelay.Take(); ok {
		apply("brew.drip_delay", v, func() { eng.Settings.DripDelay = secondsToDuration(v) })
	}

	if changed {
		if err := cfg.Save(); err != nil {
			log.Printf("config save error: %v", err)
		}
	}
}

func settingsFromConfig(cfg *config.Store) logic.Settings {
	return logic.Settings{
		GoalWeight:             cfg.Float("brew.goal_weight"),
		Offset:                 cfg.Float("brew.weight_offset"),
		MaxOffset:              cfg.Float("brew.max_offset"),
		Momentary:              cfg.Bool("switch.momentary"),
		ReedSwitch:             cfg.Bool("switch.reedcontact"),
		AutoTare:               cfg.Bool("scale.auto_tare"),
		ByTimeOnly:             cfg.Bool("brew.by_time_only"),
		TargetTime:             time.Duration(cfg.Int("brew.target_time")) * time.Second,
		MinShotDuration:        secondsToDuration(cfg.Float("brew.min_shot_duration")),
		MaxShotDuration:        secondsToDuration(cfg.Float("brew.max_shot_duration")),
		DripDelay:              secondsToDuration(cfg.Float("brew.drip_delay")),
		ReedDelay:              secondsToDuration(cfg.Float("brew.reed_switch_delay")),
		PulseDuration:          time.Duration(cfg.Int("brew.pulse_duration_ms")) * time.Millisecond,
		MinWeightForPrediction: cfg.Float("scale.min_weight_for_prediction"),
	}
}

func secondsToDuration(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func modeString(timeOnly bool) string {
	if timeOnly {
		return "time"
	}
	return "weight"
}
