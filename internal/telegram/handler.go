package telegram

import (
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/config"
	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/models"
	"github.com/MonoBehav1our/TulSUAttendanceBot/internal/services"
)

var (
	nameRegex   = regexp.MustCompile(`^[А-Яа-яЁё-]+$`)
	quotedRegex = regexp.MustCompile(`"([^"]+)"`)
)

type UpdateHandler struct {
	client      *Client
	state       *StateManager
	users       *services.UserService
	disciplines *services.DisciplineService
	polls       *services.PollService
	reports     *services.ReportService
	aggregator  *services.Aggregator
	cfg         *config.Config
}

func NewUpdateHandler(
	client *Client,
	state *StateManager,
	users *services.UserService,
	disciplines *services.DisciplineService,
	polls *services.PollService,
	reports *services.ReportService,
	aggregator *services.Aggregator,
	cfg *config.Config,
) *UpdateHandler {
	return &UpdateHandler{
		client:      client,
		state:       state,
		users:       users,
		disciplines: disciplines,
		polls:       polls,
		reports:     reports,
		aggregator:  aggregator,
		cfg:         cfg,
	}
}

func (h *UpdateHandler) Handle(upd Update) {
	if upd.PollAnswer != nil {
		h.onPollAnswer(upd.PollAnswer)
		return
	}
	if upd.CallbackQuery != nil {
		h.handleCallback(upd.CallbackQuery)
		return
	}
	if upd.Message != nil {
		h.handleMessage(upd.Message)
	}
}

// onPollAnswer feeds an answer event into the aggregator. The aggregator
// never fails the update loop; lost answers only show up in the log.
func (h *UpdateHandler) onPollAnswer(pa *PollAnswer) {
	username := ""
	if pa.User.Username != "" {
		username = "@" + pa.User.Username
	}

	h.aggregator.RecordResponse(
		pa.PollID,
		strconv.FormatInt(pa.User.ID, 10),
		pa.OptionIDs,
		pa.User.FirstName,
		pa.User.LastName,
		username,
	)
}

func (h *UpdateHandler) handleMessage(msg *Message) {
	if msg.From == nil {
		return
	}
	userID := msg.From.ID
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	switch {
	case isCommand(msg, "start"):
		if !h.requireMember(userID, chatID) {
			return
		}
		h.cmdStart(msg, userID, chatID)
		return
	case isCommand(msg, "edit_name"):
		if !h.requirePrivate(msg) || !h.requireMember(userID, chatID) {
			return
		}
		h.startRegistration(userID, chatID)
		return
	case isCommand(msg, "display_name"):
		if !h.requirePrivate(msg) || !h.requireMember(userID, chatID) {
			return
		}
		h.cmdDisplayName(userID, chatID)
		return
	case isCommand(msg, "export_attendance"):
		if !h.requirePrivate(msg) || !h.requireMember(userID, chatID) {
			return
		}
		h.cmdExportAttendance(userID, chatID, text)
		return
	case isCommand(msg, "manage_disciplines"):
		if !h.requirePrivate(msg) || !h.requireMember(userID, chatID) || !h.requireAdmin(userID, chatID) {
			return
		}
		h.state.Clear(userID)
		h.client.SendMessage(chatID, "Выберите действие для дисциплин:", "", ManageDisciplinesKeyboard())
		return
	}

	// dialogs only make sense in DM
	if msg.Chat.Type != "private" {
		return
	}

	us := h.state.Get(userID)
	switch us.State {
	case StateLastName:
		h.onLastName(userID, chatID, text)
	case StateFirstName:
		h.onFirstName(msg, userID, chatID, text)
	case StateDisciplineName:
		h.onDisciplineName(userID, chatID, text)
	case StateDisciplineAlias:
		h.onDisciplineAlias(userID, chatID, text)
	case StateDisciplineType:
		h.onDisciplineType(userID, chatID, text)
	}
}

func (h *UpdateHandler) cmdStart(msg *Message, userID, chatID int64) {
	h.state.Clear(userID)

	if msg.Chat.Type == "private" {
		user, err := h.users.Get(strconv.FormatInt(userID, 10))
		if err != nil {
			log.Printf("load profile %d: %v", userID, err)
		}
		if user == nil || !user.Registered {
			h.startRegistration(userID, chatID)
			return
		}
	}

	start := time.Now()
	msgID, err := h.client.SendMessage(chatID, "Бот запущен!", "", nil)
	if err != nil {
		log.Printf("start reply: %v", err)
		return
	}
	ping := time.Since(start).Milliseconds()

	h.client.EditMessageText(chatID, msgID,
		fmt.Sprintf("Бот запущен!\nПинг: %d мс\n(Жду следующей пары...)", ping), "", nil)
}

// ----- registration dialog -----

func (h *UpdateHandler) startRegistration(userID, chatID int64) {
	h.state.Set(userID, &UserState{State: StateLastName})
	h.client.SendMessage(chatID, "Введите вашу фамилию (одно русское слово):", "", nil)
}

func (h *UpdateHandler) onLastName(userID, chatID int64, text string) {
	last := capitalizeName(text)
	if !nameRegex.MatchString(last) {
		h.client.SendMessage(chatID,
			"Фамилия должна состоять из одного русского слова. Пожалуйста, введите корректную фамилию:", "", nil)
		return
	}

	h.state.Set(userID, &UserState{State: StateFirstName, LastName: last})
	h.client.SendMessage(chatID, "Отлично! Теперь введите ваше имя (одно русское слово):", "", nil)
}

func (h *UpdateHandler) onFirstName(msg *Message, userID, chatID int64, text string) {
	first := capitalizeName(text)
	if !nameRegex.MatchString(first) {
		h.client.SendMessage(chatID,
			"Имя должно состоять из одного русского слова. Пожалуйста, введите корректное имя:", "", nil)
		return
	}

	last := h.state.Get(userID).LastName
	profile := &models.UserProfile{
		UserID:     strconv.FormatInt(userID, 10),
		Username:   msg.From.Username,
		LastName:   last,
		FirstName:  first,
		Registered: true,
	}
	if err := h.users.Upsert(profile); err != nil {
		log.Printf("save profile %d: %v", userID, err)
		h.client.SendMessage(chatID, "Не удалось сохранить данные, попробуйте ещё раз.", "", nil)
		return
	}

	h.state.Clear(userID)
	h.client.SendMessage(chatID,
		fmt.Sprintf("Спасибо, %s %s! Ваши данные сохранены.", last, first), "", nil)
}

func (h *UpdateHandler) cmdDisplayName(userID, chatID int64) {
	user, err := h.users.Get(strconv.FormatInt(userID, 10))
	if err != nil {
		log.Printf("load profile %d: %v", userID, err)
	}
	if user == nil || !user.Registered {
		h.client.SendMessage(chatID, "Ваше имя не указано.", "", nil)
		return
	}
	h.client.SendMessage(chatID,
		fmt.Sprintf("Ваше имя: %s %s.", user.LastName, user.FirstName), "", nil)
}

// ----- attendance export -----

func (h *UpdateHandler) cmdExportAttendance(userID, chatID int64, text string) {
	h.state.Clear(userID)

	now := time.Now()
	year, month := now.Year(), int(now.Month())

	if arg := commandArgs(text); arg != "" {
		y, m, err := parsePeriod(arg)
		if err != nil {
			h.client.SendMessage(chatID, "Используйте формат: /export_attendance YYYY-MM", "", nil)
			return
		}
		year, month = y, m
	}

	h.client.SendMessage(chatID,
		fmt.Sprintf("Генерирую отчёт за %04d-%02d…", year, month), "", nil)

	rows, err := h.polls.PastByMonth(year, month)
	if err != nil {
		log.Printf("load past polls %04d-%02d: %v", year, month, err)
		h.client.SendMessage(chatID, "Не удалось сформировать отчёт.", "", nil)
		return
	}
	if len(rows) == 0 {
		h.client.SendMessage(chatID, "Нет данных за этот период.", "", nil)
		return
	}

	data, err := h.reports.BuildReport(rows)
	if err != nil {
		log.Printf("build report %04d-%02d: %v", year, month, err)
		h.client.SendMessage(chatID, "Не удалось сформировать отчёт.", "", nil)
		return
	}

	if err := h.client.SendDocument(chatID, h.reports.FileName(year, month), data, ""); err != nil {
		log.Printf("send report %04d-%02d: %v", year, month, err)
		h.client.SendMessage(chatID, "Не удалось отправить отчёт.", "", nil)
	}
}

// parsePeriod parses the optional "YYYY-M" argument.
func parsePeriod(arg string) (int, int, error) {
	parts := strings.SplitN(arg, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad period %q", arg)
	}
	year, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad year %q", parts[0])
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil || month < 1 || month > 12 {
		return 0, 0, fmt.Errorf("bad month %q", parts[1])
	}
	return year, month, nil
}

// ----- discipline management dialog -----

func (h *UpdateHandler) handleCallback(cb *CallbackQuery) {
	if !strings.HasPrefix(cb.Data, "md:") {
		h.client.AnswerCallbackQuery(cb.ID, "Неверные данные", true)
		return
	}
	h.client.AnswerCallbackQuery(cb.ID, "", false)

	userID := cb.From.ID
	if !h.cfg.IsAdmin(userID) || cb.Message == nil {
		return
	}
	chatID := cb.Message.Chat.ID

	action := strings.SplitN(cb.Data, ":", 2)[1]
	switch action {
	case ActionSetAlias, ActionSetNMG, ActionExclude:
	default:
		return
	}

	h.state.Set(userID, &UserState{State: StateDisciplineName, Action: action})
	h.client.SendMessage(chatID,
		`Введите полное название дисциплины в кавычках, например: "Введение в математический анализ"`, "", nil)
}

func (h *UpdateHandler) onDisciplineName(userID, chatID int64, text string) {
	quoted := extractQuoted(text)
	if len(quoted) != 1 {
		h.client.SendMessage(chatID, "Нужно ровно одно название в кавычках.", "", nil)
		return
	}
	full := quoted[0]

	us := h.state.Get(userID)
	if us.Action == "" {
		h.state.Clear(userID)
		h.client.SendMessage(chatID, "Ошибка, начните заново через /manage_disciplines.", "", nil)
		return
	}

	switch us.Action {
	case ActionSetAlias:
		h.state.Set(userID, &UserState{State: StateDisciplineAlias, Action: us.Action, FullName: full})
		h.client.SendMessage(chatID,
			fmt.Sprintf("Теперь введите сокращение для \"%s\" (в кавычках):", full), "", nil)
	case ActionSetNMG:
		h.state.Set(userID, &UserState{State: StateDisciplineType, Action: us.Action, FullName: full})
		h.client.SendMessage(chatID,
			fmt.Sprintf("Теперь введите тип занятия для \"%s\" (в кавычках):", full), "", nil)
	case ActionExclude:
		h.state.Clear(userID)
		if err := h.disciplines.Exclude(full); err != nil {
			log.Printf("exclude %q: %v", full, err)
			h.client.SendMessage(chatID, "Не удалось сохранить настройку.", "", nil)
			return
		}
		log.Printf("excluded discipline %q", full)
		h.client.SendMessage(chatID,
			fmt.Sprintf("Дисциплина \"%s\" добавлена в список исключённых.", full), "", nil)
	}
}

func (h *UpdateHandler) onDisciplineAlias(userID, chatID int64, text string) {
	us := h.state.Get(userID)
	if us.FullName == "" {
		h.state.Clear(userID)
		h.client.SendMessage(chatID, "Ошибка, начните заново через /manage_disciplines.", "", nil)
		return
	}

	quoted := extractQuoted(text)
	if len(quoted) != 1 || strings.TrimSpace(quoted[0]) == "" {
		h.client.SendMessage(chatID, "Короткое название не может быть пустым.", "", nil)
		return
	}
	alias := quoted[0]

	h.state.Clear(userID)
	if err := h.disciplines.SetAlias(us.FullName, alias); err != nil {
		log.Printf("set alias %q: %v", us.FullName, err)
		h.client.SendMessage(chatID, "Не удалось сохранить настройку.", "", nil)
		return
	}
	log.Printf("added alias %q -> %q", us.FullName, alias)
	h.client.SendMessage(chatID,
		fmt.Sprintf("Добавлено: \"%s\" → \"%s\"", us.FullName, alias), "", nil)
}

func (h *UpdateHandler) onDisciplineType(userID, chatID int64, text string) {
	us := h.state.Get(userID)
	if us.FullName == "" {
		h.state.Clear(userID)
		h.client.SendMessage(chatID, "Ошибка, начните заново через /manage_disciplines.", "", nil)
		return
	}

	quoted := extractQuoted(text)
	if len(quoted) != 1 || strings.TrimSpace(quoted[0]) == "" {
		h.client.SendMessage(chatID, "Тип занятия не может быть пустым.", "", nil)
		return
	}
	classType := quoted[0]

	h.state.Clear(userID)
	if err := h.disciplines.SetNotMyGroup(us.FullName, classType); err != nil {
		log.Printf("set nmg %q: %v", us.FullName, err)
		h.client.SendMessage(chatID, "Не удалось сохранить настройку.", "", nil)
		return
	}
	log.Printf("added nmg %q (%s)", us.FullName, classType)
	h.client.SendMessage(chatID,
		fmt.Sprintf("Добавлено в список «не моя группа»: %s (%s)", us.FullName, classType), "", nil)
}

// ----- filters -----

func (h *UpdateHandler) requirePrivate(msg *Message) bool {
	if msg.Chat.Type != "private" {
		h.client.SendMessage(msg.Chat.ID, "Эта команда доступна только в личных сообщениях.", "", nil)
		return false
	}
	return true
}

func (h *UpdateHandler) requireMember(userID, chatID int64) bool {
	member, err := h.client.GetChatMember(h.cfg.ChatID, userID)
	if err != nil {
		log.Printf("fetch chat member %d: %v", userID, err)
		return false
	}
	switch member.Status {
	case "creator", "administrator", "member", "restricted":
		return true
	}
	return false
}

func (h *UpdateHandler) requireAdmin(userID, chatID int64) bool {
	if !h.cfg.IsAdmin(userID) {
		h.client.SendMessage(chatID, "Эта команда доступна только администраторам.", "", nil)
		return false
	}
	return true
}

// ----- helpers -----

func isCommand(msg *Message, cmd string) bool {
	if msg.Entities == nil {
		return false
	}
	for _, e := range msg.Entities {
		if e.Type == "bot_command" && e.Offset == 0 {
			cmdText := msg.Text[e.Offset : e.Offset+e.Length]
			cmdText = strings.Split(cmdText, "@")[0]
			return cmdText == "/"+cmd
		}
	}
	return false
}

func commandArgs(text string) string {
	parts := strings.SplitN(text, " ", 2)
	if len(parts) < 2 {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

func extractQuoted(text string) []string {
	var out []string
	for _, m := range quotedRegex.FindAllStringSubmatch(text, -1) {
		out = append(out, m[1])
	}
	return out
}

// capitalizeName normalizes "иВАНОВ" to "Иванов".
func capitalizeName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	runes := []rune(name)
	if len(runes) == 0 {
		return ""
	}
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
