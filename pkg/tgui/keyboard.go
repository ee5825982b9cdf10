package tgui

import (
	"strings"

	tele "gopkg.in/telebot.v4"
)

// Data packs callback data as "action:part:part". Keep payloads short:
// Telegram caps callback data at 64 bytes.
func Data(action string, parts ...string) string {
	if len(parts) == 0 {
		return action
	}
	return action + ":" + strings.Join(parts, ":")
}

// SplitData is the inverse of Data: action plus remaining parts.
func SplitData(data string) (action string, parts []string) {
	fields := strings.Split(data, ":")
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}

// Btn is one inline keyboard button.
type Btn struct {
	Text string
	Data string
}

// Inline builds a telebot inline keyboard from button rows. It is returned
// as *tele.ReplyMarkup for transport.SendOptions.ReplyMarkupAdapter.
func Inline(rows ...[]Btn) *tele.ReplyMarkup {
	rm := &tele.ReplyMarkup{}
	kb := make([][]tele.InlineButton, 0, len(rows))
	for _, row := range rows {
		line := make([]tele.InlineButton, 0, len(row))
		for _, b := range row {
			line = append(line, tele.InlineButton{Text: b.Text, Data: b.Data})
		}
		kb = append(kb, line)
	}
	rm.InlineKeyboard = kb
	return rm
}
