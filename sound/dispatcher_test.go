package sound

import (
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Engine = "mock"
	cfg.PoolSize = 4
	return cfg
}

func testClip(name string, d time.Duration) *Clip {
	return &Clip{
		Name:       name,
		Data:       make([]byte, 64),
		Format:     FormatPCM16,
		SampleRate: 44100,
		Channels:   1,
		Duration:   d,
	}
}

func newTestDispatcher(t *testing.T, cfg Config) (*Dispatcher, *MockEngine) {
	t.Helper()
	engine := NewMockEngine()
	d, err := NewDispatcher(engine, cfg)
	if err != nil {
		t.Fatalf("NewDispatcher error: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d, engine
}

func TestPlayConfiguresAndStarts(t *testing.T) {
	d, _ := newTestDispatcher(t, testConfig())
	clip := testClip("shot", time.Second)

	p := DefaultPlayParams()
	p.Volume = 0.8
	p.Pitch = 1.5
	p.Spread = 30
	p.MinDistance = 2
	p.Route = "effects"

	at := Vec3{X: 1, Y: 2, Z: 3}
	e, err := d.Play(clip, at, p)
	if err != nil {
		t.Fatalf("Play error: %v", err)
	}
	if e == nil {
		t.Fatal("Play returned nil emitter")
	}

	m := e.(*MockEmitter)
	if !m.IsPlaying() {
		t.Error("emitter not playing after Play")
	}
	if m.Clip() != clip {
		t.Error("clip not assigned")
	}
	if m.Volume() != 0.8 {
		t.Errorf("volume = %v, want 0.8", m.Volume())
	}
	if m.Pitch() != 1.5 {
		t.Errorf("pitch = %v, want 1.5", m.Pitch())
	}
	if m.Spread() != 30 {
		t.Errorf("spread = %v, want 30", m.Spread())
	}
	if m.MinDistance() != 2 {
		t.Errorf("min distance = %v, want 2", m.MinDistance())
	}
	if m.RouteValue() != "effects" {
		t.Errorf("route = %q, want effects", m.RouteValue())
	}
	if m.Position() != at {
		t.Errorf("position = %v, want %v", m.Position(), at)
	}
	if m.SpatialBlend() != 1 {
		t.Errorf("spatial blend = %v, want full 3D", m.SpatialBlend())
	}
	if m.Loop() {
		t.Error("one-shot playback must force loop off")
	}
	if m.Doppler() != 0 {
		t.Errorf("doppler = %v, want 0", m.Doppler())
	}
	if !m.Spatialized() {
		t.Error("spatializer flag not applied")
	}
}

func TestPlayOverridesPreviousLoopFlag(t *testing.T) {
	d, engine := newTestDispatcher(t, testConfig())

	// Dirty a pooled emitter as a previous borrower might have.
	engine.Emitters()[0].SetLoop(true)

	e, err := d.Play(testClip("step", time.Second), Vec3{}, DefaultPlayParams())
	if err != nil {
		t.Fatal(err)
	}
	if e.(*MockEmitter).Loop() {
		t.Error("loop flag survived a one-shot Play")
	}
}

func TestPlayMasterVolumeScaling(t *testing.T) {
	cfg := testConfig()
	cfg.MasterVolume = 0.5
	d, _ := newTestDispatcher(t, cfg)

	p := DefaultPlayParams()
	p.Volume = 0.8
	e, err := d.Play(testClip("shot", time.Second), Vec3{}, p)
	if err != nil {
		t.Fatal(err)
	}
	if got := e.(*MockEmitter).Volume(); got != 0.4 {
		t.Errorf("volume = %v, want 0.4", got)
	}
}

func TestPlayRejections(t *testing.T) {
	tests := []struct {
		name   string
		clip   *Clip
		params func() PlayParams
	}{
		{
			name:   "nil clip",
			clip:   nil,
			params: DefaultPlayParams,
		},
		{
			name: "zero volume",
			clip: testClip("silent", time.Second),
			params: func() PlayParams {
				p := DefaultPlayParams()
				p.Volume = 0
				return p
			},
		},
		{
			name: "zero pitch",
			clip: testClip("frozen", time.Second),
			params: func() PlayParams {
				p := DefaultPlayParams()
				p.Pitch = 0
				return p
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, engine := newTestDispatcher(t, testConfig())

			e, err := d.Play(tt.clip, Vec3{}, tt.params())
			if err != nil {
				t.Errorf("rejection must be silent, got error %v", err)
			}
			if e != nil {
				t.Error("rejection must not return an emitter")
			}

			// Rejection happens before pool interaction: no rotation, no
			// emitter touched.
			for i, m := range engine.Emitters() {
				if len(m.Calls()) != 0 {
					t.Errorf("pooled emitter %d touched by rejected play: %v", i, m.Calls())
				}
			}
			if next := d.Pool().Next(); next != Emitter(engine.Emitters()[0]) {
				t.Error("pool rotated on a rejected play")
			}
		})
	}
}

func TestPlayPositionSetBeforeParenting(t *testing.T) {
	d, engine := newTestDispatcher(t, testConfig())

	parent, err := engine.NewNode("turret")
	if err != nil {
		t.Fatal(err)
	}

	p := DefaultPlayParams()
	p.Parent = parent
	e, err := d.Play(testClip("fire", time.Second), Vec3{X: 5}, p)
	if err != nil {
		t.Fatal(err)
	}

	m := e.(*MockEmitter)
	if m.Parent() != parent {
		t.Fatal("emitter not re-parented")
	}

	posIdx, parentIdx := -1, -1
	for i, call := range m.Calls() {
		switch call {
		case "SetPosition":
			posIdx = i
		case "SetParent":
			parentIdx = i
		}
	}
	if posIdx == -1 || parentIdx == -1 {
		t.Fatalf("missing SetPosition/SetParent in call log %v", m.Calls())
	}
	if posIdx > parentIdx {
		t.Error("world position must be set before re-parenting")
	}
}

func TestPlayPooledRotation(t *testing.T) {
	cfg := testConfig()
	cfg.PoolSize = 2
	d, engine := newTestDispatcher(t, cfg)

	clip := testClip("shot", time.Second)
	first, _ := d.Play(clip, Vec3{}, DefaultPlayParams())
	second, _ := d.Play(clip, Vec3{}, DefaultPlayParams())
	third, _ := d.Play(clip, Vec3{}, DefaultPlayParams())

	if first != Emitter(engine.Emitters()[0]) || second != Emitter(engine.Emitters()[1]) {
		t.Error("pooled plays not in FIFO order")
	}
	if third != first {
		t.Error("third play should reuse the first emitter")
	}
	// Pooled mode never creates emitters beyond the pool.
	if len(engine.Emitters()) != 2 {
		t.Errorf("engine has %d emitters, want 2", len(engine.Emitters()))
	}
}

func TestPlaySkipBusyMode(t *testing.T) {
	cfg := testConfig()
	cfg.PoolSize = 2
	cfg.SkipBusy = true
	d, _ := newTestDispatcher(t, cfg)

	clip := testClip("shot", time.Second)
	first, _ := d.Play(clip, Vec3{}, DefaultPlayParams())
	second, _ := d.Play(clip, Vec3{}, DefaultPlayParams())

	// Both slots busy; playback finishes on the first.
	first.(*MockEmitter).FinishPlayback()

	third, _ := d.Play(clip, Vec3{}, DefaultPlayParams())
	if third != first {
		t.Error("skip-busy play should have found the idle emitter")
	}
	if !second.IsPlaying() {
		t.Error("busy emitter was disturbed")
	}
}

func TestPlayEphemeralSchedulesTeardown(t *testing.T) {
	cfg := testConfig()
	cfg.Pooling = false
	d, engine := newTestDispatcher(t, cfg)

	e, err := d.Play(testClip("shot", time.Second), Vec3{}, DefaultPlayParams())
	if err != nil {
		t.Fatal(err)
	}
	if e == nil {
		t.Fatal("ephemeral play returned nil")
	}
	if len(engine.Emitters()) != 1 {
		t.Fatalf("engine has %d emitters, want 1 ephemeral", len(engine.Emitters()))
	}
	if d.reaper.pending() != 1 {
		t.Errorf("reaper has %d pending teardowns, want 1", d.reaper.pending())
	}
}

func TestTeardownDelay(t *testing.T) {
	tests := []struct {
		name     string
		duration time.Duration
		pitch    float64
		margin   time.Duration
		want     time.Duration
	}{
		{
			name:     "double pitch halves lifetime",
			duration: 2 * time.Second,
			pitch:    2,
			margin:   200 * time.Millisecond,
			want:     1200 * time.Millisecond,
		},
		{
			name:     "unit pitch",
			duration: time.Second,
			pitch:    1,
			margin:   200 * time.Millisecond,
			want:     1200 * time.Millisecond,
		},
		{
			name:     "half pitch doubles lifetime",
			duration: time.Second,
			pitch:    0.5,
			margin:   200 * time.Millisecond,
			want:     2200 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := teardownDelay(tt.duration, tt.pitch, tt.margin); got != tt.want {
				t.Errorf("teardownDelay(%v, %v, %v) = %v, want %v", tt.duration, tt.pitch, tt.margin, got, tt.want)
			}
		})
	}
}

func TestPlayFromSetEmpty(t *testing.T) {
	d, _ := newTestDispatcher(t, testConfig())

	for _, set := range []*ClipSet{nil, NewClipSet()} {
		e, err := d.PlayFromSet(set, Vec3{}, DefaultPlayParams())
		if !errors.Is(err, ErrEmptyClipSet) {
			t.Errorf("PlayFromSet(empty) error = %v, want ErrEmptyClipSet", err)
		}
		if e != nil {
			t.Error("PlayFromSet(empty) returned an emitter")
		}
	}
}

func TestPlayFromSetNoRepeat(t *testing.T) {
	d, _ := newTestDispatcher(t, testConfig())

	set := NewClipSet(
		testClip("a", time.Second),
		testClip("b", time.Second),
		testClip("c", time.Second),
	)

	p := DefaultPlayParams()
	p.NoRepeat = true

	var prev *Clip
	for i := 0; i < 200; i++ {
		e, err := d.PlayFromSet(set, Vec3{}, p)
		if err != nil {
			t.Fatal(err)
		}
		got := e.Clip()
		if prev != nil && got == prev {
			t.Fatalf("clip %q selected twice in a row at play %d", got.Name, i)
		}
		prev = got
	}
}

func TestPlay2DSharedEmitter(t *testing.T) {
	d, engine := newTestDispatcher(t, testConfig())

	click := testClip("click", 100*time.Millisecond)
	hover := testClip("hover", 80*time.Millisecond)

	p := DefaultPlayParams()
	first, err := d.Play2D(click, p)
	if err != nil {
		t.Fatal(err)
	}
	second, err := d.Play2D(hover, p)
	if err != nil {
		t.Fatal(err)
	}

	if first != second {
		t.Fatal("2D playback must share a single emitter")
	}

	m := first.(*MockEmitter)
	if m.SpatialBlend() != 0 {
		t.Errorf("2D emitter blend = %v, want 0", m.SpatialBlend())
	}
	shots := m.OneShots()
	if len(shots) != 2 {
		t.Fatalf("got %d layered one-shots, want 2", len(shots))
	}
	if shots[0].Clip != click || shots[1].Clip != hover {
		t.Error("one-shots layered in wrong order")
	}

	// The shared emitter is outside the pool.
	poolSize := testConfig().PoolSize
	if len(engine.Emitters()) != poolSize+1 {
		t.Errorf("engine has %d emitters, want %d pooled + 1 shared", len(engine.Emitters()), poolSize)
	}
}

func TestPlay2DConfiguredOnce(t *testing.T) {
	d, _ := newTestDispatcher(t, testConfig())

	p := DefaultPlayParams()
	e, err := d.Play2D(testClip("click", time.Second), p)
	if err != nil {
		t.Fatal(err)
	}
	configured := len(e.(*MockEmitter).Calls())

	if _, err := d.Play2D(testClip("clack", time.Second), p); err != nil {
		t.Fatal(err)
	}

	// Only the PlayOneShot call is added; spatial and loop settings are
	// never reconfigured.
	if got := len(e.(*MockEmitter).Calls()); got != configured+1 {
		t.Errorf("second 2D play made %d extra calls, want 1", got-configured)
	}
}

func TestPlay2DRejections(t *testing.T) {
	d, _ := newTestDispatcher(t, testConfig())

	zeroVol := DefaultPlayParams()
	zeroVol.Volume = 0

	if e, err := d.Play2D(nil, DefaultPlayParams()); e != nil || err != nil {
		t.Error("nil clip must be a silent rejection")
	}
	if e, err := d.Play2D(testClip("c", time.Second), zeroVol); e != nil || err != nil {
		t.Error("zero volume must be a silent rejection")
	}
}

func TestPlayRandomTime(t *testing.T) {
	d, engine := newTestDispatcher(t, testConfig())

	e, err := engine.NewEmitter(nil)
	if err != nil {
		t.Fatal(err)
	}
	clip := testClip("ambience", 10*time.Second)
	e.SetClip(clip)

	for i := 0; i < 50; i++ {
		d.PlayRandomTime(e)
		m := e.(*MockEmitter)
		if !m.IsPlaying() {
			t.Fatal("emitter not playing after PlayRandomTime")
		}
		if off := m.SeekOffset(); off < 0 || off >= clip.Duration {
			t.Fatalf("seek offset %v outside [0, %v)", off, clip.Duration)
		}
	}
}

func TestPlayRandomTimeNoClip(t *testing.T) {
	d, engine := newTestDispatcher(t, testConfig())

	e, err := engine.NewEmitter(nil)
	if err != nil {
		t.Fatal(err)
	}

	d.PlayRandomTime(e)
	if e.IsPlaying() {
		t.Error("PlayRandomTime on a clipless emitter must be a no-op")
	}
}

func TestDispatcherCloseRejectsFurtherPlays(t *testing.T) {
	engine := NewMockEngine()
	d, err := NewDispatcher(engine, testConfig())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := d.Play2D(testClip("click", time.Second), DefaultPlayParams()); err != nil {
		t.Fatal(err)
	}
	if err := d.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := d.Play(testClip("shot", time.Second), Vec3{}, DefaultPlayParams()); !errors.Is(err, ErrDispatcherClosed) {
		t.Errorf("Play after Close error = %v, want ErrDispatcherClosed", err)
	}

	for i, m := range engine.Emitters() {
		if !m.Closed() {
			t.Errorf("emitter %d not closed by dispatcher Close", i)
		}
	}
}

func TestNewDispatcherInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.PoolSize = 0
	if _, err := NewDispatcher(NewMockEngine(), cfg); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("NewDispatcher error = %v, want ErrInvalidConfig", err)
	}
}
