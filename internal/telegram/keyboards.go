package telegram

func ManageDisciplinesKeyboard() *InlineKeyboardMarkup {
	return &InlineKeyboardMarkup{
		InlineKeyboard: [][]InlineKeyboardButton{
			{
				{Text: "✏️ Сократить", CallbackData: "md:" + ActionSetAlias},
				{Text: "👥 НМГ", CallbackData: "md:" + ActionSetNMG},
			},
			{
				{Text: "🗑️ Исключить", CallbackData: "md:" + ActionExclude},
			},
		},
	}
}
