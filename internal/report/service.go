package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/signintech/gopdf"

	"health-compass/internal/health"
	"health-compass/internal/platform/logger"
	"health-compass/internal/screening"
)

var ErrFontNotFound = errors.New("no cyrillic font available for PDF")

// DejaVuSans covers Cyrillic; these are the usual Debian and Alpine paths.
var fontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

type FileSender interface {
	SendFile(ctx context.Context, chatID int64, caption, fileName string, data []byte) error
}

type Service struct {
	sender   FileSender
	fontPath string
	log      *logger.Logger
	now      func() time.Time
}

// NewService builds a report renderer. fontPath, when set, is tried before
// the system DejaVu locations. sender may be nil if reports are only served
// over HTTP.
func NewService(sender FileSender, fontPath string, log *logger.Logger) *Service {
	return &Service{sender: sender, fontPath: fontPath, log: log.With("component", "report"), now: time.Now}
}

// Build renders the health report PDF.
func (s *Service) Build(p *health.UserProfile, schedule []screening.Item, metrics []health.HealthMetric) ([]byte, error) {
	pdf := gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := s.loadFont(&pdf); err != nil {
		return nil, err
	}
	w := &writer{pdf: &pdf}

	w.font(20)
	w.line("Health Compass: отчёт о здоровье", 30)

	w.font(12)
	w.line(fmt.Sprintf("Дата: %s", s.now().Format("02.01.2006 15:04")), 15)
	w.line(fmt.Sprintf("ID пользователя: %d", p.UserID), 15)
	w.line(fmt.Sprintf("Пол: %s, возраст: %d", genderLabel(p.Gender), p.Age), 15)
	if p.Location != "" {
		w.line(fmt.Sprintf("Город: %s", p.Location), 15)
	}
	w.gap(10)

	w.font(14)
	w.line("Факторы риска и заболевания:", 15)
	w.font(11)
	if len(p.RiskFactors) == 0 && len(p.Conditions) == 0 {
		w.line("- Не указаны.", 15)
	}
	for _, f := range p.RiskFactors {
		w.line("- "+riskLabel(f), 12)
	}
	for _, c := range p.Conditions {
		line := "- " + c.Name
		if c.DiagnosisDate != nil {
			line += fmt.Sprintf(" (с %s)", c.DiagnosisDate.Format("02.01.2006"))
		}
		w.line(line, 12)
	}
	w.gap(15)

	w.font(14)
	w.line("Рекомендованные обследования:", 15)
	w.font(11)
	if len(schedule) == 0 {
		w.line("- Плановых обследований нет.", 15)
	}
	for _, it := range schedule {
		w.wrapped(fmt.Sprintf("- %s: %s. Раз в %d г., приоритет %s, срок %d.",
			it.Rule.Name, it.Rule.Description, it.Rule.FrequencyYears, it.Priority, it.NextDue))
	}
	w.gap(15)

	w.font(14)
	w.line("Последние показатели:", 15)
	w.font(11)
	if len(metrics) == 0 {
		w.line("- Записей нет.", 15)
	}
	for _, m := range metrics {
		w.wrapped(fmt.Sprintf("- %s %s: %s", m.Timestamp.Format("02.01.2006 15:04"), metricLabel(m.Type), formatValue(m)))
	}

	if w.err != nil {
		return nil, w.err
	}
	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// Send builds the report and uploads it to the chat.
func (s *Service) Send(ctx context.Context, chatID int64, p *health.UserProfile, schedule []screening.Item, metrics []health.HealthMetric) error {
	if s.sender == nil {
		return errors.New("report sender is not configured")
	}
	data, err := s.Build(p, schedule, metrics)
	if err != nil {
		return err
	}
	fileName := fmt.Sprintf("health_report_%d.pdf", p.UserID)
	if err := s.sender.SendFile(ctx, chatID, "📄 Ваш отчёт о здоровье", fileName, data); err != nil {
		s.log.Error("send report failed", "chat_id", chatID, "error", err)
		return err
	}
	s.log.Info("report sent", "chat_id", chatID, "bytes", len(data))
	return nil
}

func (s *Service) loadFont(pdf *gopdf.GoPdf) error {
	paths := fontPaths
	if s.fontPath != "" {
		paths = append([]string{s.fontPath}, fontPaths...)
	}
	var lastErr error
	for _, path := range paths {
		if err := pdf.AddTTFFont("DejaVu", path); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: %v", ErrFontNotFound, lastErr)
}

// writer keeps the first gopdf error and starts a new page near the bottom.
type writer struct {
	pdf *gopdf.GoPdf
	err error
}

const pageBottom = 790

func (w *writer) font(size int) {
	if w.err == nil {
		w.err = w.pdf.SetFont("DejaVu", "", size)
	}
}

func (w *writer) line(text string, advance float64) {
	if w.err != nil {
		return
	}
	if w.pdf.GetY() > pageBottom {
		w.pdf.AddPage()
	}
	w.err = w.pdf.Cell(nil, text)
	w.pdf.Br(advance)
}

func (w *writer) wrapped(text string) {
	if w.err != nil {
		return
	}
	lines, err := w.pdf.SplitText(text, 500)
	if err != nil {
		w.err = err
		return
	}
	for _, l := range lines {
		w.line(l, 12)
	}
	w.gap(5)
}

func (w *writer) gap(h float64) {
	if w.err == nil {
		w.pdf.Br(h)
	}
}

func genderLabel(g health.Gender) string {
	switch g {
	case health.GenderMale:
		return "мужской"
	case health.GenderFemale:
		return "женский"
	default:
		return string(g)
	}
}

func riskLabel(f health.RiskFactor) string {
	switch f {
	case health.RiskSmoking:
		return "Курение"
	case health.RiskAlcohol:
		return "Алкоголь"
	case health.RiskObesity:
		return "Избыточный вес"
	case health.RiskSedentary:
		return "Малоподвижный образ жизни"
	case health.RiskFamilyHistory:
		return "Наследственность"
	default:
		return string(f)
	}
}

func metricLabel(t string) string {
	switch t {
	case health.MetricPressure:
		return "давление"
	case health.MetricPulse:
		return "пульс"
	case health.MetricTemperature:
		return "температура"
	case health.MetricWeight:
		return "вес"
	default:
		return t
	}
}

func formatValue(m health.HealthMetric) string {
	if m.Type == health.MetricPressure {
		return fmt.Sprintf("%g/%g", m.Value["systolic"], m.Value["diastolic"])
	}
	return fmt.Sprintf("%g", m.Value["value"])
}
