package audio

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type sinkInput struct {
	id      int
	volume  int
	appName string
}

// Ducker lowers other applications' audio while darvis listens or
// speaks, via pactl. All methods are no-ops when PulseAudio is absent.
type Ducker struct {
	selfNames  []string
	duckFactor float64

	mu       sync.Mutex
	restored map[int]int // sink input id -> original volume
}

// NewDucker builds a ducker that leaves streams owned by selfNames
// untouched and scales everything else by factor (0..1).
func NewDucker(selfNames []string, factor float64) *Ducker {
	if factor <= 0 || factor >= 1 {
		factor = 0.3
	}
	return &Ducker{
		selfNames:  selfNames,
		duckFactor: factor,
		restored:   map[int]int{},
	}
}

// Duck lowers every foreign stream and remembers the original volumes.
func (d *Ducker) Duck(ctx context.Context) {
	streams, err := listSinkInputs(ctx)
	if err != nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	for _, s := range streams {
		if d.isSelf(s) {
			continue
		}
		if _, already := d.restored[s.id]; already {
			continue
		}
		target := int(float64(s.volume) * d.duckFactor)
		if setSinkInputVolume(ctx, s.id, target) == nil {
			d.restored[s.id] = s.volume
		}
	}
}

// Unduck restores every volume changed by the last Duck.
func (d *Ducker) Unduck(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id, volume := range d.restored {
		setSinkInputVolume(ctx, id, volume)
		delete(d.restored, id)
	}
}

func (d *Ducker) isSelf(s sinkInput) bool {
	name := strings.ToLower(s.appName)
	for _, self := range d.selfNames {
		if strings.Contains(name, strings.ToLower(self)) {
			return true
		}
	}
	return false
}

func listSinkInputs(ctx context.Context) ([]sinkInput, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, err
	}
	return parseSinkInputs(string(out)), nil
}

func parseSinkInputs(out string) []sinkInput {
	var (
		inputs  []sinkInput
		current *sinkInput
	)
	for _, line := range strings.Split(out, "\n") {
		trimmed := strings.TrimSpace(line)

		if rest, ok := strings.CutPrefix(trimmed, "Sink Input #"); ok {
			if current != nil {
				inputs = append(inputs, *current)
			}
			id, err := strconv.Atoi(strings.TrimSpace(rest))
			if err != nil {
				current = nil
				continue
			}
			current = &sinkInput{id: id, volume: -1}
			continue
		}
		if current == nil {
			continue
		}

		if strings.HasPrefix(trimmed, "Volume:") && current.volume < 0 {
			if m := percentRe.FindStringSubmatch(trimmed); m != nil {
				current.volume, _ = strconv.Atoi(m[1])
			}
			continue
		}
		if strings.HasPrefix(trimmed, "application.name") {
			if _, value, ok := strings.Cut(trimmed, "="); ok {
				current.appName = strings.Trim(strings.TrimSpace(value), `"`)
			}
		}
	}
	if current != nil {
		inputs = append(inputs, *current)
	}

	valid := inputs[:0]
	for _, s := range inputs {
		if s.volume >= 0 {
			valid = append(valid, s)
		}
	}
	return valid
}

func setSinkInputVolume(ctx context.Context, id, percent int) error {
	if percent < 0 {
		percent = 0
	}
	arg := fmt.Sprintf("%d%%", percent)
	return exec.CommandContext(ctx, "pactl", "set-sink-input-volume", strconv.Itoa(id), arg).Run()
}
