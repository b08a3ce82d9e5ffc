package view

import (
	"fmt"
	"strings"

	tuitheme "github.com/glabrego/sitebag-cli/internal/tui/theme"
)

type Screen int

const (
	ScreenList Screen = iota
	ScreenDetail
	ScreenTags
	ScreenPrompt
)

func Toolbar(screen Screen) string {
	switch screen {
	case ScreenDetail:
		return "j/k scroll | o open | y copy | A archive | s fav | T tags | d delete | R re-extract | esc back"
	case ScreenTags:
		return "enter add | enter on empty: save | tab complete | ctrl+x remove | esc cancel"
	case ScreenPrompt:
		return "enter apply | esc cancel"
	default:
		return "j/k move | enter open | a archived | / criteria | A archive | s fav | T tags | d delete | + add | R re-extract | r reload | q quit"
	}
}

// CompactFooter summarizes the active search and paging state.
func CompactFooter(criteria string, page, shown int, terminal bool, th tuitheme.Theme) string {
	more := "more"
	if terminal {
		more = "end"
	}
	parts := []string{
		th.MetaLabel.Render("search") + " " + th.MetaValue.Render(criteria),
		th.MetaLabel.Render("page") + " " + th.MetaValue.Render(fmt.Sprintf("%d", page)),
		th.MetaValue.Render(fmt.Sprintf("%d shown", shown)),
		th.MetaValue.Render(more),
	}
	return strings.Join(parts, " • ")
}

func CompactMessage(loading bool, hasWarning bool, status, warning string, th tuitheme.Theme) string {
	state := "idle"
	if loading {
		state = "loading"
	}
	if hasWarning {
		state = "warning"
	}
	main := "Ready"
	if status != "" {
		main = status
	} else if hasWarning {
		main = warning
	}
	stateLabel := th.StateIdle.Render("state")
	switch state {
	case "warning":
		stateLabel = th.StateWarn.Render("state")
	case "loading":
		stateLabel = th.StateLoad.Render("state")
	}
	return fmt.Sprintf("%s: %s | %s", stateLabel, state, th.MetaValue.Render(main))
}
