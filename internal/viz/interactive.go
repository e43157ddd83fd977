package viz

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/san-kum/morphcloud/internal/shapes"
)

var (
	cyan    = lipgloss.NewStyle().Foreground(lipgloss.Color("#00ffff")).Bold(true)
	white   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff")).Bold(true)
	dim     = lipgloss.NewStyle().Foreground(lipgloss.Color("#555566"))
	dimmer  = lipgloss.NewStyle().Foreground(lipgloss.Color("#444455"))
	magenta = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff88ff"))
	keyHint = lipgloss.NewStyle().Foreground(lipgloss.Color("#00aaaa")).Bold(true)
)

var shapeInfo = map[shapes.Shape]string{
	shapes.Heart:         "parametric heart, beats",
	shapes.Flower:        "rose curve petals",
	shapes.Saturn:        "planet with a ring",
	shapes.Buddha:        "seated figure",
	shapes.Fireworks:     "bursting shell",
	shapes.ChristmasTree: "lights, star, trunk",
}

var particleSteps = []int{2000, 5000, 10000, 25000, 50000, 100000}

// Choice is what the picker returns.
type Choice struct {
	Shape     shapes.Shape
	Color     shapes.RGB
	Particles int
}

const (
	pickShape = iota
	pickOptions
)

// Picker is a start menu: a shape list, then particle count and color.
type Picker struct {
	stage    int
	cursor   int
	option   int
	colorIdx int
	countIdx int
	choice   Choice
	done     bool
}

// NewPicker starts with the given defaults selected.
func NewPicker(def Choice) Picker {
	p := Picker{choice: def, countIdx: len(particleSteps) - 1}
	for i, s := range shapes.All() {
		if s == def.Shape {
			p.cursor = i
		}
	}
	for i, n := range particleSteps {
		if n >= def.Particles {
			p.countIdx = i
			break
		}
	}
	for i, name := range shapes.SwatchNames() {
		if shapes.Swatches[name] == def.Color {
			p.colorIdx = i
		}
	}
	return p
}

// Chosen reports the selection and whether the user confirmed it.
func (p Picker) Chosen() (Choice, bool) { return p.choice, p.done }

func (p Picker) Init() tea.Cmd { return nil }

func (p Picker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return p, nil
	}
	if k := key.String(); k == "q" || k == "ctrl+c" {
		return p, tea.Quit
	}
	if p.stage == pickShape {
		return p.shapeKey(key)
	}
	return p.optionKey(key)
}

func (p Picker) shapeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	all := shapes.All()
	switch msg.String() {
	case "up", "k":
		if p.cursor > 0 {
			p.cursor--
		}
	case "down", "j":
		if p.cursor < len(all)-1 {
			p.cursor++
		}
	case "enter", " ":
		p.choice.Shape = all[p.cursor]
		p.stage, p.option = pickOptions, 0
	}
	return p, nil
}

func (p Picker) optionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	names := shapes.SwatchNames()
	switch msg.String() {
	case "esc":
		p.stage = pickShape
	case "up", "k", "down", "j":
		p.option = 1 - p.option
	case "left", "h":
		if p.option == 0 {
			p.countIdx = max(0, p.countIdx-1)
		} else {
			p.colorIdx = (p.colorIdx + len(names) - 1) % len(names)
		}
	case "right", "l":
		if p.option == 0 {
			p.countIdx = min(len(particleSteps)-1, p.countIdx+1)
		} else {
			p.colorIdx = (p.colorIdx + 1) % len(names)
		}
	case "enter", "s":
		p.choice.Particles = particleSteps[p.countIdx]
		p.choice.Color = shapes.Swatches[names[p.colorIdx]]
		p.done = true
		return p, tea.Quit
	}
	return p, nil
}

func (p Picker) View() string {
	var b strings.Builder
	b.WriteString("\n\n    " + cyan.Render("MORPHCLOUD") + "\n    " + dim.Render("gesture-steered particles") + "\n    " + dim.Render("─────────────────────────") + "\n\n")

	if p.stage == pickShape {
		for i, s := range shapes.All() {
			if i == p.cursor {
				b.WriteString(fmt.Sprintf("    %s %s  %s\n", cyan.Render("▸"), white.Render(fmt.Sprintf("%-14s", s)), magenta.Render(shapeInfo[s])))
			} else {
				b.WriteString(fmt.Sprintf("      %s  %s\n", dim.Render(fmt.Sprintf("%-14s", s)), dimmer.Render(shapeInfo[s])))
			}
		}
		b.WriteString("\n    " + keyHint.Render("j/k") + dim.Render(" navigate  ") + keyHint.Render("enter") + dim.Render(" select  ") + keyHint.Render("q") + dim.Render(" quit") + "\n")
		return b.String()
	}

	name := shapes.SwatchNames()[p.colorIdx]
	swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(shapes.Swatches[name].Hex())).Render("██ " + name)
	rows := []struct{ label, value string }{
		{"particles", fmt.Sprintf("%d", particleSteps[p.countIdx])},
		{"color", swatch},
	}
	b.WriteString("    " + white.Render(p.choice.Shape.String()) + "\n\n")
	for i, r := range rows {
		if i == p.option {
			b.WriteString(fmt.Sprintf("    %s %s %s\n", cyan.Render("▸"), white.Render(fmt.Sprintf("%-10s", r.label)), r.value))
		} else {
			b.WriteString(fmt.Sprintf("      %s %s\n", dim.Render(fmt.Sprintf("%-10s", r.label)), r.value))
		}
	}
	b.WriteString("\n    " + keyHint.Render("j/k") + dim.Render(" select  ") + keyHint.Render("h/l") + dim.Render(" adjust  ") + keyHint.Render("s") + dim.Render(" start  ") + keyHint.Render("esc") + dim.Render(" back") + "\n")
	return b.String()
}

// RunPicker shows the start menu. ok is false if the user quit.
func RunPicker(def Choice) (Choice, bool, error) {
	final, err := tea.NewProgram(NewPicker(def), tea.WithAltScreen()).Run()
	if err != nil {
		return def, false, err
	}
	c, ok := final.(Picker).Chosen()
	return c, ok, nil
}
