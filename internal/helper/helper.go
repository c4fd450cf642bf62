package helper

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// MarketLocation — биржевой часовой пояс (NSE). Фоллбек на фиксированный
// +05:30, если tzdata недоступна в контейнере.
func MarketLocation() *time.Location {
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		return time.FixedZone("IST", 5*3600+1800)
	}
	return loc
}

// ParseHHMM — "09:15" -> часы/минуты. Ошибочный формат = 0:0.
func ParseHHMM(s string) (h, m int) {
	s = strings.TrimSpace(s)
	if _, err := fmt.Sscanf(s, "%d:%d", &h, &m); err != nil {
		return 0, 0
	}
	return h, m
}

// WithinWindow — попадает ли локальное время now в окно [from, to] (HH:MM).
func WithinWindow(now time.Time, from, to string) bool {
	fh, fm := ParseHHMM(from)
	th, tm := ParseHHMM(to)
	cur := now.Hour()*60 + now.Minute()
	return cur >= fh*60+fm && cur <= th*60+tm
}

// After — прошло ли локальное время now за отметку HH:MM.
func After(now time.Time, hhmm string) bool {
	h, m := ParseHHMM(hhmm)
	return now.Hour()*60+now.Minute() >= h*60+m
}

// BucketStart — начало свечного бакета: floor(ts / width) * width.
func BucketStart(t time.Time, width time.Duration) time.Time {
	sec := t.Unix()
	w := int64(width / time.Second)
	if w <= 0 {
		return t
	}
	sec -= sec % w
	return time.Unix(sec, 0).In(t.Location())
}

// ATMStrike — ближайший страйк к споту.
func ATMStrike(spot, step float64) float64 {
	if step <= 0 {
		return spot
	}
	return math.Round(spot/step) * step
}

// ITMStrike — страйк на offset шагов в деньгах от ATM.
// Для CE "в деньгах" значит ниже спота, для PE — выше.
func ITMStrike(atm, step float64, offset int, isCall bool) float64 {
	if isCall {
		return atm - float64(offset)*step
	}
	return atm + float64(offset)*step
}

func RoundDownToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Floor(px/tick + 1e-12)
	return steps * tick
}

func RoundUpToTick(px, tick float64) float64 {
	if tick <= 0 {
		return px
	}
	steps := math.Ceil(px/tick - 1e-12)
	return steps * tick
}

// StrikeKey — ключ эксклюзивности "инструмент:страйк:направление".
func StrikeKey(inst string, strike float64, dir string) string {
	return fmt.Sprintf("%s:%.0f:%s", inst, strike, dir)
}
