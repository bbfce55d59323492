package schedule

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	scheduleEndpoint   = "https://tulsu.ru/schedule/queries/GetSchedule.php"
	timeGroupsEndpoint = "https://tulsu.ru/schedule/queries/GetTimeGroups.php"
)

// Class is one scheduled occurrence from the university timetable.
type Class struct {
	Date      string
	StartTime string
	EndTime   string
	ClassName string
	Prof      string
	Room      string
	ClassType string
}

type apiClass struct {
	Date      string `json:"DATE_Z"`
	TimeRange string `json:"TIME_Z"`
	Discip    string `json:"DISCIP"`
	Prep      string `json:"PREP"`
	Aud       string `json:"AUD"`
	Kow       string `json:"KOW"`
}

type apiTimeGroup struct {
	TimeStart string `json:"TIME_START"`
}

// Parser fetches the group timetable and keeps it grouped by date.
type Parser struct {
	groupID            int64
	httpClient         *http.Client
	scheduleEndpoint   string
	timeGroupsEndpoint string
	testMode           bool

	mu       sync.RWMutex
	schedule map[string][]Class
}

func NewParser(groupID int64, testMode bool) *Parser {
	return &Parser{
		groupID:            groupID,
		httpClient:         &http.Client{Timeout: 10 * time.Second},
		scheduleEndpoint:   scheduleEndpoint,
		timeGroupsEndpoint: timeGroupsEndpoint,
		testMode:           testMode,
		schedule:           make(map[string][]Class),
	}
}

// Fetch refreshes the timetable. In test mode a synthetic two-class schedule
// starting a minute from now is used instead of the live API.
func (p *Parser) Fetch() error {
	var classes []Class
	if p.testMode {
		classes = testSchedule(time.Now())
		log.Println("test schedule loaded")
	} else {
		raw, err := p.fetchRaw()
		if err != nil {
			return err
		}
		for _, item := range raw {
			cls, err := parseClass(item)
			if err != nil {
				return err
			}
			classes = append(classes, cls)
		}
		log.Println("schedule updated")
	}

	sortClasses(classes)

	grouped := make(map[string][]Class)
	for _, cls := range classes {
		grouped[cls.Date] = append(grouped[cls.Date], cls)
	}

	p.mu.Lock()
	p.schedule = grouped
	p.mu.Unlock()
	return nil
}

// ClassesOn returns the classes scheduled for a dd.mm.yyyy date.
func (p *Parser) ClassesOn(date string) []Class {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.schedule[date]
}

// StartTimes returns the distinct lesson start times for the group, sorted.
func (p *Parser) StartTimes() ([]time.Time, error) {
	raw, err := p.get(p.timeGroupsEndpoint)
	if err != nil {
		return nil, err
	}

	var groups []apiTimeGroup
	if err := json.Unmarshal(raw, &groups); err != nil {
		return nil, fmt.Errorf("time groups: %w", err)
	}

	distinct := make(map[string]time.Time)
	for _, g := range groups {
		t, err := time.Parse("15:04", g.TimeStart)
		if err != nil {
			return nil, fmt.Errorf("time groups: bad start %q: %w", g.TimeStart, err)
		}
		distinct[g.TimeStart] = t
	}

	times := make([]time.Time, 0, len(distinct))
	for _, t := range distinct {
		times = append(times, t)
	}
	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	return times, nil
}

func (p *Parser) fetchRaw() ([]apiClass, error) {
	raw, err := p.get(p.scheduleEndpoint)
	if err != nil {
		return nil, err
	}

	var classes []apiClass
	if err := json.Unmarshal(raw, &classes); err != nil {
		return nil, fmt.Errorf("schedule: %w", err)
	}
	return classes, nil
}

func (p *Parser) get(endpoint string) ([]byte, error) {
	params := url.Values{
		"search_field": {"GROUP_P"},
		"search_value": {strconv.FormatInt(p.groupID, 10)},
	}

	resp, err := p.httpClient.Get(endpoint + "?" + params.Encode())
	if err != nil {
		return nil, fmt.Errorf("http: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timetable api: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return data, nil
}

func parseClass(item apiClass) (Class, error) {
	parts := strings.Split(item.TimeRange, " - ")
	if len(parts) != 2 {
		return Class{}, fmt.Errorf("schedule: bad time range %q", item.TimeRange)
	}

	return Class{
		Date:      item.Date,
		StartTime: parts[0],
		EndTime:   parts[1],
		ClassName: item.Discip,
		Prof:      item.Prep,
		Room:      item.Aud,
		ClassType: item.Kow,
	}, nil
}

func sortClasses(classes []Class) {
	sort.SliceStable(classes, func(i, j int) bool {
		di, _ := time.Parse("02.01.2006", classes[i].Date)
		dj, _ := time.Parse("02.01.2006", classes[j].Date)
		if !di.Equal(dj) {
			return di.Before(dj)
		}
		if classes[i].StartTime != classes[j].StartTime {
			return classes[i].StartTime < classes[j].StartTime
		}
		return classes[i].EndTime < classes[j].EndTime
	})
}

// testSchedule mirrors the live API shape with two classes starting shortly,
// so poll flow can be exercised without waiting for a real lesson.
func testSchedule(now time.Time) []Class {
	start := now.Add(time.Minute)
	end := start.Add(2 * time.Minute)
	date := start.Format("02.01.2006")

	return []Class{
		{
			Date:      date,
			StartTime: start.Format("15:04"),
			EndTime:   end.Format("15:04"),
			ClassName: "Иностранный язык",
			Prof:      "Филимонова Ольга Викторовна",
			Room:      "9-328",
			ClassType: "Практические занятия (англ)",
		},
		{
			Date:      date,
			StartTime: start.Format("15:04"),
			EndTime:   end.Format("15:04"),
			ClassName: "Программирование",
			Prof:      "Креслинь Мария Владимировна",
			Room:      "Гл.-418-д",
			ClassType: "Лабораторные занятия",
		},
	}
}
