package bot

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"speakcheck/internal/practice"
)

// Discord component limits: a message carries at most 5 action rows of at
// most 5 buttons each.
const (
	maxComponentRows  = 5
	maxButtonsPerRow  = 5
	maxMessageButtons = maxComponentRows * maxButtonsPerRow

	// pageButtons reserves the last row of a paginated keyboard for the
	// page controls.
	pageButtons = (maxComponentRows - 1) * maxButtonsPerRow
)

// Page-control custom IDs. They are transport-internal and never reach the
// practice engine's action parser.
const (
	pagePrevID  = "keyboard_page_prev"
	pageLabelID = "keyboard_page"
	pageNextID  = "keyboard_page_next"
)

// pageFlip maps a page-control custom ID to its page delta.
func pageFlip(customID string) (int, bool) {
	switch customID {
	case pagePrevID:
		return -1, true
	case pageNextID:
		return 1, true
	}
	return 0, false
}

// fitsComponentLimits reports whether the keyboard's own row layout can be
// sent as-is.
func fitsComponentLimits(kb practice.Keyboard) bool {
	if len(kb) > maxComponentRows {
		return false
	}
	for _, row := range kb {
		if len(row) > maxButtonsPerRow {
			return false
		}
	}
	return true
}

// flattenButtons collapses a keyboard into its ordered button list so an
// oversized layout can be repacked within the component limits.
func flattenButtons(kb practice.Keyboard) []practice.Button {
	var buttons []practice.Button
	for _, row := range kb {
		buttons = append(buttons, row...)
	}
	return buttons
}

// packRows packs buttons into action rows of up to five buttons each.
func packRows(buttons []practice.Button) []discordgo.MessageComponent {
	rows := make([]discordgo.MessageComponent, 0, (len(buttons)+maxButtonsPerRow-1)/maxButtonsPerRow)
	for start := 0; start < len(buttons); start += maxButtonsPerRow {
		end := min(start+maxButtonsPerRow, len(buttons))
		btns := make([]discordgo.MessageComponent, 0, end-start)
		for _, b := range buttons[start:end] {
			btns = append(btns, discordgo.Button{
				Label:    b.Label,
				Style:    discordgo.PrimaryButton,
				CustomID: b.Action,
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: btns})
	}
	return rows
}

// pageComponents renders one page of a flattened button list. When the whole
// list fits in a single message it is packed without page controls and the
// page count is 1; otherwise each page holds pageButtons buttons plus a
// navigation row.
func pageComponents(buttons []practice.Button, page int) ([]discordgo.MessageComponent, int) {
	if len(buttons) <= maxMessageButtons {
		return packRows(buttons), 1
	}

	pages := (len(buttons) + pageButtons - 1) / pageButtons
	if page < 0 {
		page = 0
	}
	if page >= pages {
		page = pages - 1
	}

	start := page * pageButtons
	end := min(start+pageButtons, len(buttons))
	rows := packRows(buttons[start:end])
	rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Label:    "Prev",
			Style:    discordgo.SecondaryButton,
			CustomID: pagePrevID,
			Disabled: page == 0,
		},
		discordgo.Button{
			Label:    fmt.Sprintf("%d/%d", page+1, pages),
			Style:    discordgo.SecondaryButton,
			CustomID: pageLabelID,
			Disabled: true,
		},
		discordgo.Button{
			Label:    "Next",
			Style:    discordgo.SecondaryButton,
			CustomID: pageNextID,
			Disabled: page == pages-1,
		},
	}})
	return rows, pages
}

// messageComponents converts a keyboard for one outbound message. Layouts
// within the component limits keep their row structure. Oversized keyboards
// (the Part 1 topic list) are flattened and rendered as their first page; the
// returned button list is non-nil exactly when the message needs page
// controls and must be remembered for page flips.
func messageComponents(kb practice.Keyboard) ([]discordgo.MessageComponent, []practice.Button) {
	if fitsComponentLimits(kb) {
		return keyboardComponents(kb), nil
	}
	buttons := flattenButtons(kb)
	comps, pages := pageComponents(buttons, 0)
	if pages <= 1 {
		return comps, nil
	}
	return comps, buttons
}
