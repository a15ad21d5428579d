package main

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gwillem/manipulator/pkg/control"
	"github.com/gwillem/manipulator/pkg/link"
	"github.com/gwillem/manipulator/pkg/robot"
)

func TestActionFor(t *testing.T) {
	tests := []struct {
		key  string
		want action
	}{
		{"q", action{kind: actionMove, axis: 0, dir: robot.Increase}},
		{"a", action{kind: actionMove, axis: 0, dir: robot.Decrease}},
		{"W", action{kind: actionMove, axis: 1, dir: robot.Increase}},
		{"h", action{kind: actionMove, axis: 5, dir: robot.Decrease}},
		{"z", action{kind: actionTorque, axis: 0}},
		{"n", action{kind: actionTorque, axis: 5}},
		{"1", action{kind: actionPreset, preset: 0}},
		{"9", action{kind: actionPreset, preset: 8}},
		{"p", action{kind: actionPrompt}},
		{"l", action{kind: actionTelemetry}},
		{"esc", action{kind: actionQuit}},
		{"ctrl+c", action{kind: actionQuit}},
		{"0", action{}},
		{"up", action{}},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			assert.Equal(t, tt.want, actionFor(tt.key))
		})
	}
}

func TestRepeatLimiter(t *testing.T) {
	r := newRepeatLimiter()
	base := time.Unix(1700000000, 0)

	assert.True(t, r.allow("q", moveRepeat, base))
	assert.False(t, r.allow("q", moveRepeat, base.Add(20*time.Millisecond)))
	assert.True(t, r.allow("a", moveRepeat, base.Add(20*time.Millisecond)), "keys are throttled independently")
	assert.True(t, r.allow("q", moveRepeat, base.Add(50*time.Millisecond)))
}

func newTestModel(t *testing.T) (driveModel, *link.MockTransport) {
	t.Helper()
	m := link.NewMockTransport()
	ctrl, err := control.New(context.Background(), control.Config{
		Link:       link.Options{Open: m.Opener()},
		PresetFile: filepath.Join(t.TempDir(), "presets.json"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { ctrl.Close() })
	return initialDriveModel(ctrl, 3), m
}

// press handles key and runs the command it dispatches, the way the
// program loop would.
func press(t *testing.T, model driveModel, key string, now time.Time) driveModel {
	t.Helper()
	next, cmd := model.handleKey(key, now)
	model = next.(driveModel)
	if cmd == nil {
		return model
	}
	msg := cmd()
	require.IsType(t, commandDoneMsg{}, msg)
	next, _ = model.Update(msg)
	return next.(driveModel)
}

func TestDriveModel_KeysDriveController(t *testing.T) {
	model, mock := newTestModel(t)
	now := time.Unix(1700000000, 0)

	model = press(t, model, "q", now)
	model = press(t, model, "q", now.Add(10*time.Millisecond))
	assert.Equal(t, 515, model.state.Motors[0].Target, "repeat inside 50ms is dropped")

	model = press(t, model, "2", now)
	assert.Equal(t, "Ready", model.state.ActivePreset)

	model = press(t, model, "v", now)
	assert.False(t, model.state.Motors[3].TorqueEnabled)

	sent := mock.Messages()
	require.Len(t, sent, 3)
	assert.Equal(t, "Control:515,512,512,980,800,430*", sent[0].String())
	assert.Equal(t, "Control:512,700,600,700,512,660*", sent[1].String())
	assert.Equal(t, "Torque:1,1,1,0,1,1*", sent[2].String())
}

func TestDriveModel_KeyDoesNotWaitForDevice(t *testing.T) {
	model, mock := newTestModel(t)
	mock.SetLatency(200 * time.Millisecond)

	start := time.Now()
	next, cmd := model.handleKey("q", start)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
	require.NotNil(t, cmd)
	assert.Empty(t, mock.Messages(), "the command runs when the program executes it")

	next, _ = next.(driveModel).Update(cmd())
	model = next.(driveModel)
	assert.Equal(t, 515, model.state.Motors[0].Target)
	require.Len(t, mock.Messages(), 1)
}

func TestDriveModel_MissingPresetKey(t *testing.T) {
	model, mock := newTestModel(t)

	next, _ := model.handleKey("7", time.Now())
	model = next.(driveModel)
	assert.Empty(t, mock.Messages())
	require.NotEmpty(t, model.logs)
	assert.Contains(t, model.logs[len(model.logs)-1], "No preset on key 7")
}

func TestDriveModel_SavePrompt(t *testing.T) {
	model, _ := newTestModel(t)

	next, _ := model.handleKey("p", time.Now())
	model = next.(driveModel)
	require.True(t, model.prompting)

	for _, r := range "Pick" {
		next, _ = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		model = next.(driveModel)
	}
	next, _ = model.Update(tea.KeyMsg{Type: tea.KeyEnter})
	model = next.(driveModel)

	assert.False(t, model.prompting)
	assert.Equal(t, "Preset Pick saved", model.state.Status)
	names := make([]string, 0)
	for _, p := range model.ctrl.Presets() {
		names = append(names, p.Name)
	}
	assert.Equal(t, []string{"Home", "Ready", "Rest", "Pick"}, names)
}

func TestDriveModel_ViewShowsCards(t *testing.T) {
	model, _ := newTestModel(t)
	view := model.View()
	for _, a := range robot.AllAxes() {
		assert.Contains(t, view, string(a.Name))
	}
	assert.True(t, strings.Contains(view, "connected"))
}

func TestSendCommand_Message(t *testing.T) {
	tests := []struct {
		name    string
		cmd     SendCommand
		want    string
		wantErr string
	}{
		{"position", SendCommand{Position: "512,512,512,980,800,430"}, "Control:512,512,512,980,800,430*", ""},
		{"spaces", SendCommand{Position: "512, 600, 512, 980, 800, 430"}, "Control:512,600,512,980,800,430*", ""},
		{"torque", SendCommand{Torque: "1,0,1,1,1,1"}, "Torque:1,0,1,1,1,1*", ""},
		{"out of range", SendCommand{Position: "512,100,512,980,800,430"}, "", "Shoulder"},
		{"short", SendCommand{Position: "1,2,3"}, "", "expected 6 values"},
		{"both", SendCommand{Position: "1,2,3,4,5,6", Torque: "1,1,1,1,1,1"}, "", "not both"},
		{"none", SendCommand{}, "", "required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := tt.cmd.message()
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, msg.String())
		})
	}
}

func TestRenderPresetTable(t *testing.T) {
	out := renderPresetTable(robot.DefaultPresets("unused.json").All())
	for _, s := range []string{"Home", "Ready", "Rest", "Upper_Arm", "956"} {
		assert.Contains(t, out, s)
	}
}

func TestConfigPath(t *testing.T) {
	saved := opts.Config
	t.Cleanup(func() { opts.Config = saved })

	opts.Config = ""
	assert.Equal(t, robot.DefaultConfigFile, configPath())

	opts.Config = filepath.Join(t.TempDir(), "arm.json")
	assert.Equal(t, opts.Config, configPath())
}
