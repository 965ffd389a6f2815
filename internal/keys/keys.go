package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down  key.Binding
	Up    key.Binding
	Left  key.Binding
	Right key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Command palette
	Command key.Binding

	// Help toggle
	Help key.Binding

	// Reload the feed snapshot
	Reload key.Binding

	// View switching
	Feed     key.Binding
	Prompts  key.Binding
	Settings key.Binding

	// Card actions
	Reply   key.Binding
	Ignore  key.Binding
	Edit    key.Binding
	Custom  key.Binding
	Context key.Binding

	// Composer
	NextBubble   key.Binding
	AddBubble    key.Binding
	RemoveBubble key.Binding
	Send         key.Binding

	// Prompt library
	New    key.Binding
	Delete key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Left: key.NewBinding(
			key.WithKeys("left", "shift+tab"),
			key.WithHelp("←", "previous option"),
		),
		Right: key.NewBinding(
			key.WithKeys("right"),
			key.WithHelp("→", "next option"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send option / run"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command palette"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Reload: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "reload feed"),
		),
		Feed: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "feed"),
		),
		Prompts: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "prompt library"),
		),
		Settings: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "settings"),
		),
		Reply: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reply"),
		),
		Ignore: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "ignore"),
		),
		Edit: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "edit"),
		),
		Custom: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "custom reply"),
		),
		Context: key.NewBinding(
			key.WithKeys("h"),
			key.WithHelp("h", "toggle context"),
		),
		NextBubble: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next bubble"),
		),
		AddBubble: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("ctrl+n", "add bubble"),
		),
		RemoveBubble: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("ctrl+d", "remove bubble"),
		),
		Send: key.NewBinding(
			key.WithKeys("ctrl+s"),
			key.WithHelp("ctrl+s", "send draft"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "new prompt"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete prompt"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.Reply, k.Ignore,
		k.Back, k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Back, k.Quit, k.Help, k.Command},
		{k.Reply, k.Ignore, k.Context, k.Reload, k.Feed, k.Prompts, k.Settings},
		{k.Left, k.Right, k.Select, k.Edit, k.Custom},
		{k.NextBubble, k.AddBubble, k.RemoveBubble, k.Send},
		{k.New, k.Delete},
	}
}
