package viz

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"math"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/morphcloud/internal/engine"
	"github.com/san-kum/morphcloud/internal/shapes"
)

const (
	panelWidth      = 40
	historyCapacity = 240
	minCols         = 20
	minRows         = 8
)

type TickMsg time.Time

// Model drives an engine from the bubbletea loop and draws the renderer's
// canvas next to a status panel.
type Model struct {
	eng    *engine.Engine
	out    *TermRenderer
	theme  Theme
	styles styles
	frame  time.Duration

	width, height int
	running       bool
	last          time.Time
	colorIdx      int
	mono          bool
	showHelp      bool

	expansion []float64
	fps       []float64

	recording bool
	frames    []*image.Paletted
	gifPath   string

	err error
}

// NewModel builds a model for e, which must render into out.
func NewModel(e *engine.Engine, out *TermRenderer, theme Theme) Model {
	fps := e.Config().FPS
	if fps <= 0 {
		fps = 30
	}
	cols, rows := out.Size()
	return Model{
		eng:       e,
		out:       out,
		theme:     theme,
		styles:    newStyles(theme),
		frame:     time.Second / time.Duration(fps),
		width:     cols + panelWidth + 4,
		height:    rows,
		running:   true,
		colorIdx:  -1,
		expansion: make([]float64, 0, historyCapacity),
		fps:       make([]float64, 0, historyCapacity),
		gifPath:   "morphcloud.gif",
	}
}

// Err returns the error that ended the model, if any.
func (m Model) Err() error { return m.err }

func (m Model) Init() tea.Cmd {
	return m.tick()
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		cols := max(minCols, msg.Width-panelWidth-4)
		rows := max(minRows, msg.Height-1)
		m.eng.Resize(cols, rows)
		return m, nil

	case TickMsg:
		now := time.Time(msg)
		if m.running {
			dt := m.frame
			if !m.last.IsZero() {
				dt = now.Sub(m.last)
			}
			if err := m.eng.Tick(dt); err != nil {
				if errors.Is(err, engine.ErrDisposed) || errors.Is(err, engine.ErrContextLost) {
					m.err = err
					return m, tea.Quit
				}
			}
			m.record(dt)
			if m.recording {
				m.captureFrame()
			}
		}
		m.last = now
		return m, m.tick()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case " ":
		m.running = !m.running
		m.last = time.Time{}
	case "1", "2", "3", "4", "5", "6":
		all := shapes.All()
		if i := int(key[0] - '1'); i < len(all) {
			m.eng.SwitchShape(all[i])
		}
	case "c":
		names := shapes.SwatchNames()
		m.colorIdx = (m.colorIdx + 1) % len(names)
		m.eng.SetColor(shapes.Swatches[names[m.colorIdx]])
	case "t":
		m.theme = NextTheme(m.theme)
		m.styles = newStyles(m.theme)
		if m.mono {
			m.out.SetMono(m.theme.Primary)
		}
	case "m":
		m.mono = !m.mono
		if m.mono {
			m.out.SetMono(m.theme.Primary)
		} else {
			m.out.SetMono("")
		}
	case "+", "=":
		m.out.Zoom(1)
	case "-", "_":
		m.out.Zoom(-1)
	case "g":
		if m.recording {
			m.saveGIF()
			m.recording = false
			m.frames = nil
		} else {
			m.recording = true
			m.frames = make([]*image.Paletted, 0)
		}
	case "?":
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m *Model) record(dt time.Duration) {
	info := m.out.Info()
	m.expansion = appendCapped(m.expansion, float64(info.Expansion))
	if dt > 0 {
		m.fps = appendCapped(m.fps, float64(time.Second)/float64(dt))
	}
}

func appendCapped(s []float64, v float64) []float64 {
	s = append(s, v)
	if len(s) > historyCapacity {
		s = s[1:]
	}
	return s
}

func (m Model) View() string {
	if m.err != nil {
		return fmt.Sprintf("engine stopped: %v\n", m.err)
	}
	st := m.styles
	info := m.out.Info()

	var s strings.Builder
	s.WriteString(st.header.Render(GradientText(strings.ToUpper(info.Shape.String()), m.theme.Primary, m.theme.Secondary)) + "\n")

	switch {
	case !m.running:
		s.WriteString(st.warn.Render("PAUSED") + "\n\n")
	case info.Hands == 0:
		s.WriteString(st.muted.Render(AnimatedSpinner(int(info.Index/4))+" "+info.StatusText) + "\n\n")
	default:
		s.WriteString(st.good.Render("● "+info.StatusText) + "\n\n")
	}

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(info.Color.Hex())).Render("██")
	row("Color", swatch+" "+info.Color.Hex())
	row("Particles", fmt.Sprintf("%d (%d drawn)", info.Count, info.Plotted))
	row("Yaw", fmt.Sprintf("%+.1f°", float64(info.Yaw)*180/math.Pi))
	row("Pitch", fmt.Sprintf("%+.1f°", float64(info.Pitch)*180/math.Pi))
	gauge := ProgressBar((float64(info.Expansion)-0.5)/3, 16, m.theme.Accent, m.theme.Muted)
	row("Expansion", gauge+fmt.Sprintf(" %.2f", info.Expansion))
	if info.Fast {
		row("", st.warn.Render("morphing"))
	}
	if len(m.fps) > 0 {
		row("FPS", fmt.Sprintf("%.0f ", m.fps[len(m.fps)-1])+st.graph.Render(Sparkline(m.fps, 12)))
	}
	if m.recording {
		row("GIF", st.warn.Render(fmt.Sprintf("● %d frames", len(m.frames))))
	}

	if len(m.expansion) > 1 {
		chart := asciigraph.Plot(m.expansion,
			asciigraph.Height(5), asciigraph.Width(panelWidth-12), asciigraph.Caption("expansion"))
		s.WriteString("\n" + st.graph.Render(chart) + "\n")
	}

	s.WriteString("\n" + Separator(panelWidth-4, st.muted) + "\n")
	s.WriteString(st.help.Render("1-6:Shape C:Color T:Theme\nSP:Pause +/-:Zoom Q:Quit ?:Help"))

	main := lipgloss.JoinHorizontal(lipgloss.Top, st.canvas.Render(m.out.View()), st.panel.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + main
	}
	return main
}

const helpText = `
  1-6   switch shape (heart flower saturn buddha fireworks tree)
  c     next color swatch
  m     particle colors / theme color
  t     next theme
  + -   zoom
  space pause
  g     start/stop GIF recording
  q     quit
`

func (m *Model) captureFrame() {
	canvas := m.out.Snapshot()
	const charW, charH = 8, 16
	dotW, dotH := charW/2, charH/4
	img := image.NewPaletted(image.Rect(0, 0, canvas.Width*charW, canvas.Height*charH), color.Palette{color.Black, color.White})

	dw, dh := canvas.Dots()
	for y := 0; y < dh; y++ {
		for x := 0; x < dw; x++ {
			if !canvas.Lit(x, y) {
				continue
			}
			for py := 0; py < dotH; py++ {
				for px := 0; px < dotW; px++ {
					img.SetColorIndex(x*dotW+px, y*dotH+py, 1)
				}
			}
		}
	}
	m.frames = append(m.frames, img)
}

func (m *Model) saveGIF() {
	if len(m.frames) == 0 {
		return
	}
	anim := gif.GIF{LoopCount: 0}
	delay := max(1, int(m.frame/(10*time.Millisecond)))
	for _, frame := range m.frames {
		anim.Image = append(anim.Image, frame)
		anim.Delay = append(anim.Delay, delay)
	}
	f, err := os.Create(m.gifPath)
	if err != nil {
		return
	}
	defer f.Close()
	gif.EncodeAll(f, &anim)
}

// Run takes over the terminal until the user quits.
func Run(e *engine.Engine, out *TermRenderer, theme Theme) error {
	final, err := tea.NewProgram(NewModel(e, out, theme), tea.WithAltScreen()).Run()
	if err != nil {
		return err
	}
	if m, ok := final.(Model); ok {
		return m.Err()
	}
	return nil
}
