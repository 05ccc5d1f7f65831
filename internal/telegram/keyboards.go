package telegram

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	btnTakeSurvey = "📝 Take a survey"
	btnHistory    = "📊 My surveys"
)

// Callback data formats. qid is the question the keyboard was sent for.
const (
	cbChoice = "ans"  // ans:<qid>:<option index>
	cbRate   = "rate" // rate:<qid>:<value>
	cbToggle = "tog"  // tog:<qid>:<option index>
	cbDone   = "done" // done:<qid>
)

func MainMenuKeyboard() *ReplyKeyboardMarkup {
	return &ReplyKeyboardMarkup{
		Keyboard: [][]KeyboardButton{
			{{Text: btnTakeSurvey}},
			{{Text: btnHistory}},
		},
		ResizeKeyboard: true,
	}
}

func LocationKeyboard() *ReplyKeyboardMarkup {
	return &ReplyKeyboardMarkup{
		Keyboard: [][]KeyboardButton{
			{{Text: "📍 Send my location", RequestLocation: true}},
		},
		ResizeKeyboard:  true,
		OneTimeKeyboard: true,
	}
}

func ChoiceKeyboard(questionID uint, options []string) *InlineKeyboardMarkup {
	var rows [][]InlineKeyboardButton
	for i, text := range options {
		rows = append(rows, []InlineKeyboardButton{
			{Text: text, CallbackData: fmt.Sprintf("%s:%d:%d", cbChoice, questionID, i)},
		})
	}
	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}

// RatingKeyboard lays the scale out in rows of at most six buttons.
func RatingKeyboard(questionID uint, lo, hi int) *InlineKeyboardMarkup {
	var rows [][]InlineKeyboardButton
	var row []InlineKeyboardButton
	for v := lo; v <= hi; v++ {
		row = append(row, InlineKeyboardButton{
			Text:         strconv.Itoa(v),
			CallbackData: fmt.Sprintf("%s:%d:%d", cbRate, questionID, v),
		})
		if len(row) == 6 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}

func MultiChoiceKeyboard(questionID uint, options []string, state *UserState) *InlineKeyboardMarkup {
	var rows [][]InlineKeyboardButton
	for i, text := range options {
		if state.IsSelected(i) {
			text = "✅ " + text
		}
		rows = append(rows, []InlineKeyboardButton{
			{Text: text, CallbackData: fmt.Sprintf("%s:%d:%d", cbToggle, questionID, i)},
		})
	}
	rows = append(rows, []InlineKeyboardButton{
		{Text: "Done ➡️", CallbackData: fmt.Sprintf("%s:%d", cbDone, questionID)},
	})
	return &InlineKeyboardMarkup{InlineKeyboard: rows}
}

type callbackData struct {
	action     string
	questionID uint
	arg        int
}

func parseCallback(data string) (callbackData, bool) {
	parts := strings.Split(data, ":")
	if len(parts) < 2 {
		return callbackData{}, false
	}
	qid, err := strconv.ParseUint(parts[1], 10, 64)
	if err != nil {
		return callbackData{}, false
	}
	cb := callbackData{action: parts[0], questionID: uint(qid)}

	switch cb.action {
	case cbDone:
		return cb, len(parts) == 2
	case cbChoice, cbRate, cbToggle:
		if len(parts) != 3 {
			return callbackData{}, false
		}
		arg, err := strconv.Atoi(parts[2])
		if err != nil {
			return callbackData{}, false
		}
		cb.arg = arg
		return cb, true
	}
	return callbackData{}, false
}
