package cmd

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ftahirops/airtop/config"
	"github.com/ftahirops/airtop/engine"
	"github.com/ftahirops/airtop/model"
)

// ── ANSI color/style codes ──────────────────────────────────────────────────

const (
	R = "\033[0m" // reset
	B = "\033[1m" // bold
	D = "\033[2m" // dim

	FCyn  = "\033[36m"
	FBRed = "\033[91m"
	FBGrn = "\033[92m"
	FBYel = "\033[93m"
	FBCyn = "\033[96m"
	FBWht = "\033[97m"

	BBlu = "\033[44m"
)

// ── Styling helpers ─────────────────────────────────────────────────────────

func stateColor(s model.BalanceState) string {
	switch s {
	case model.StateLow:
		return FBYel
	case model.StateBalanced:
		return FBGrn
	case model.StateHigh:
		return FBCyn
	default:
		return D
	}
}

func bannerBadge(s model.BannerState) string {
	switch s {
	case model.BannerLow:
		return fmt.Sprintf("%s%s LOW %s", B, FBYel, R)
	case model.BannerBalanced:
		return fmt.Sprintf("%s%s BALANCED %s", B, FBGrn, R)
	default:
		return fmt.Sprintf("%s%s HIGH %s", B, FBCyn, R)
	}
}

func bar(value, maxValue, w int) string {
	if maxValue <= 0 {
		maxValue = 10
	}
	filled := value * w / maxValue
	if filled > w {
		filled = w
	}
	if value > 0 && filled == 0 {
		filled = 1
	}
	if filled < 0 {
		filled = 0
	}
	return strings.Repeat("█", filled) + D + strings.Repeat("░", w-filled) + R
}

func hr() string {
	return D + strings.Repeat("─", 60) + R
}

// runWatch prints the banner and the strip after every applied batch.
func runWatch(pipe *engine.Pipeline, open engine.SourceFactory, cfg config.Config, opts Options) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	scale, gen := pipe.Current()
	src, err := open(scale)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	iteration := 0
	var banner *model.Banner
	err = pipe.Run(ctx, src, gen, nil, func(upd *model.Update, b *model.Banner) {
		if b != nil {
			banner = b
		}
		if upd == nil {
			return
		}
		iteration++

		fmt.Print("\033[2J\033[H")
		fmt.Printf(" %s%s airtop v%s %s  %s%s%s  %s%s%s  %s\n",
			B, BBlu+FBWht, Version, R,
			FCyn, upd.Scale, R,
			D, upd.AppliedAt.Format("15:04:05"), R,
			D+fmt.Sprintf("#%d/%s", iteration, itoa(opts.WatchCount))+R)
		fmt.Println(hr())
		fmt.Print(watchBanner(banner, cfg.MaxValue))
		fmt.Println(hr())
		fmt.Print(watchStrip(upd))
		fmt.Println(hr())
		fmt.Printf(" %sCtrl+C%s to quit\n", B, R)

		if opts.WatchCount > 0 && iteration >= opts.WatchCount {
			cancel()
		}
	})
	if errors.Is(err, context.Canceled) {
		fmt.Printf("\n%sStopped.%s\n", D, R)
		return nil
	}
	return err
}

func watchBanner(b *model.Banner, maxValue int) string {
	if b == nil {
		return fmt.Sprintf("\n %sno average available%s\n\n", D, R)
	}
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf(" %s%s%d%s%s/%d%s  %s  %s%s%s\n",
		B, FBWht, b.MainValue, R, D, maxValue, R,
		bannerBadge(b.State), B, b.Caption, R))
	sb.WriteString(fmt.Sprintf(" %s\n\n", b.Description))
	return sb.String()
}

// watchStrip lists every item, one line each, with a header per section.
func watchStrip(upd *model.Update) string {
	if upd.Empty() {
		return fmt.Sprintf("\n %sNo readings for this period%s\n\n", D, R)
	}
	var sb strings.Builder
	for _, sec := range upd.Sections {
		sb.WriteString(fmt.Sprintf("\n %s%s%s\n", B, sec.ID, R))
		for _, it := range sec.Items {
			marker := "  "
			if upd.Scroll != nil && *upd.Scroll == it.Key() {
				marker = FCyn + "▶ " + R
			}
			val := fmt.Sprintf("%2d", it.Value)
			if it.State == model.StateOff {
				val = D + " ⊘" + R
			}
			sb.WriteString(fmt.Sprintf(" %s%-7s %s %s%s%s %s%s%s\n",
				marker, it.Label(),
				val,
				stateColor(it.State), bar(it.Value, it.MaxValue, 20), R,
				D, it.State, R))
		}
	}
	sb.WriteString(fmt.Sprintf("\n %s%d sections, %d readings%s\n\n", D, len(upd.Sections), upd.ItemCount, R))
	return sb.String()
}
