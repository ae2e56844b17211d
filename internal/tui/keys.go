package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit         key.Binding
	Send         key.Binding
	ToggleFocus  key.Binding
	OptionUp     key.Binding
	OptionDown   key.Binding
	DismissNudge key.Binding
	NextTextbook key.Binding
	NextChapter  key.Binding
	PrevChapter  key.Binding
	ScrollUp     key.Binding
	ScrollDown   key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send / answer"),
		),
		ToggleFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "quiz"),
		),
		OptionUp: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑", "prev option"),
		),
		OptionDown: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓", "next option"),
		),
		DismissNudge: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "dismiss"),
		),
		NextTextbook: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("ctrl+t", "next textbook"),
		),
		NextChapter: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "next chapter"),
		),
		PrevChapter: key.NewBinding(
			key.WithKeys("ctrl+p"),
			key.WithHelp("ctrl+p", "prev chapter"),
		),
		ScrollUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "scroll up"),
		),
		ScrollDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "scroll down"),
		),
	}
}

// helpLine is the footer hint for the current focus.
func (k keyMap) helpLine(quizFocus bool) string {
	bindings := []key.Binding{k.Send, k.ToggleFocus, k.NextTextbook, k.NextChapter, k.PrevChapter, k.Quit}
	if quizFocus {
		bindings = []key.Binding{k.OptionUp, k.OptionDown, k.Send, k.ToggleFocus, k.Quit}
	}
	parts := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return joinHelp(parts)
}
