// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package metrics

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/mattn/go-runewidth"

	"participa-scan/internal/detector"
)

const (
	reportWidth     = 80
	boxInner        = reportWidth - 2
	barCells        = 30
	recordsPerGroup = 10
	summaryRunes    = 100
	exampleRunes    = 20
	detectionsShown = 5
)

// RenderReport formats a computed summary as the plain-text performance
// report. It only formats; nothing is recomputed.
func RenderReport(s Summary, records []Record, detailed bool) string {
	var b reportBuilder

	b.line(strings.Repeat("=", reportWidth))
	b.line("  RELATÓRIO DE DESEMPENHO - SISTEMA DE IDENTIFICAÇÃO DE DADOS SENSÍVEIS")
	b.line(strings.Repeat("=", reportWidth))
	if s.Timestamp.IsZero() {
		b.line("  Data/Hora: -")
	} else {
		b.line("  Data/Hora: " + s.Timestamp.Format("2006-01-02T15:04:05"))
	}
	b.line(fmt.Sprintf("  Total de Registros Analisados: %d", s.Total))
	b.line("")

	b.confusionMatrix(s.ConfusionMatrix)
	b.legend()
	b.rates(s)
	b.formulas(s)
	b.typeDetails(s.ByType)
	if detailed && len(records) > 0 {
		b.records(records)
	}

	b.line("")
	b.line(strings.Repeat("=", reportWidth))
	b.line("  FIM DO RELATÓRIO")
	b.line(strings.Repeat("=", reportWidth))
	return b.String()
}

type reportBuilder struct {
	lines []string
}

func (b *reportBuilder) line(s string) { b.lines = append(b.lines, s) }

func (b *reportBuilder) String() string { return strings.Join(b.lines, "\n") }

// row pads content to the inner box width and closes it
func (b *reportBuilder) row(content string) {
	b.line("│" + ljust(content, boxInner) + "│")
}

func (b *reportBuilder) boxTop(title string) {
	b.line("┌" + rule(boxInner) + "┐")
	b.line("│" + center(title, boxInner) + "│")
	b.line("├" + rule(boxInner) + "┤")
}

func (b *reportBuilder) boxBottom() {
	b.line("└" + rule(boxInner) + "┘")
	b.line("")
}

func (b *reportBuilder) confusionMatrix(m ConfusionMatrix) {
	b.line("┌" + rule(boxInner) + "┐")
	b.line("│" + center("  MATRIZ DE CONFUSÃO", boxInner) + "│")
	b.line("├" + rule(39) + "┬" + rule(38) + "┤")
	b.line("│" + center("", 39) + "│" + center(" PREDIÇÃO DO MODELO", 38) + "│")
	b.line("│" + center("", 39) + "├" + rule(18) + "┬" + rule(19) + "┤")
	b.line("│" + center("", 39) + "│" + center(" POSITIVO", 18) + "│" + center(" NEGATIVO", 19) + "│")
	b.line("├" + rule(20) + "┬" + rule(18) + "┼" + rule(18) + "┼" + rule(19) + "┤")
	b.line("│" + center(" REAL", 20) + "│" + center(" POSITIVO", 18) + "│" +
		center(fmt.Sprintf(" VP = %d", m.TP), 18) + "│" + center(fmt.Sprintf(" FN = %d", m.FN), 19) + "│")
	b.line("│" + center("", 20) + "├" + rule(18) + "┼" + rule(18) + "┼" + rule(19) + "┤")
	b.line("│" + center("", 20) + "│" + center(" NEGATIVO", 18) + "│" +
		center(fmt.Sprintf(" FP = %d", m.FP), 18) + "│" + center(fmt.Sprintf(" VN = %d", m.TN), 19) + "│")
	b.line("└" + rule(20) + "┴" + rule(18) + "┴" + rule(18) + "┴" + rule(19) + "┘")
	b.line("")
}

func (b *reportBuilder) legend() {
	b.line("  Legenda:")
	b.line("    VP (Verdadeiro Positivo): Contém dados pessoais E foi detectado ✓")
	b.line("    VN (Verdadeiro Negativo): Não contém dados E não foi detectado ✓")
	b.line("    FP (Falso Positivo): Não contém dados MAS foi detectado ✗")
	b.line("    FN (Falso Negativo): Contém dados MAS não foi detectado ✗")
	b.line("")
}

func (b *reportBuilder) rates(s Summary) {
	level := fmt.Sprintf("IC %.0f%%", s.Level*100)

	b.boxTop("  MÉTRICAS DE DESEMPENHO")
	b.row(fmt.Sprintf("  Precisão:     %6.2f%%  %s  %s: [%.1f%%, %.1f%%]  ",
		s.Precision*100, Bar(s.Precision, barCells), level, s.PrecisionCI.Lower*100, s.PrecisionCI.Upper*100))
	b.row(fmt.Sprintf("  Sensibilidade:%6.2f%%  %s  %s: [%.1f%%, %.1f%%]  ",
		s.Recall*100, Bar(s.Recall, barCells), level, s.RecallCI.Lower*100, s.RecallCI.Upper*100))
	b.row(fmt.Sprintf("  F1-Score:     %6.2f%%  %s  %s: [%.1f%%, %.1f%%]  ",
		s.F1*100, Bar(s.F1, barCells), level, s.F1CI.Lower*100, s.F1CI.Upper*100))
	b.line("├" + rule(boxInner) + "┤")
	b.row(fmt.Sprintf("  Acurácia:     %6.2f%%  %s", s.Accuracy*100, Bar(s.Accuracy, barCells)))
	b.row(fmt.Sprintf("  Especificidade:%5.2f%%  %s", s.Specificity*100, Bar(s.Specificity, barCells)))
	b.boxBottom()
}

func (b *reportBuilder) formulas(s Summary) {
	b.boxTop("  FÓRMULAS UTILIZADAS (Conforme Edital)")
	b.row(fmt.Sprintf("  Precisão = VP / (VP + FP) = %d / (%d + %d) = %.4f", s.TP, s.TP, s.FP, s.Precision))
	b.row(fmt.Sprintf("  Sensibilidade = VP / (VP + FN) = %d / (%d + %d) = %.4f", s.TP, s.TP, s.FN, s.Recall))
	b.row("  F1-Score = 2 × (Precisão × Sensibilidade) / (Precisão + Sensibilidade)")
	b.row(fmt.Sprintf("           = 2 × (%.4f × %.4f) / (%.4f + %.4f) = %.4f",
		s.Precision, s.Recall, s.Precision, s.Recall, s.F1))
	b.boxBottom()
}

func (b *reportBuilder) typeDetails(details map[detector.Kind]TypeDetail) {
	if len(details) == 0 {
		return
	}
	kinds := make([]string, 0, len(details))
	for k := range details {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)

	b.boxTop("  DETECÇÕES POR TIPO DE DADO PESSOAL")
	for _, k := range kinds {
		td := details[detector.Kind(k)]
		line := fmt.Sprintf("  %s: %d detecção(ões)", k, td.Count)
		if len(td.Examples) > 0 {
			examples := make([]string, 0, len(td.Examples))
			for _, ex := range td.Examples {
				examples = append(examples, truncateRunes(ex, exampleRunes))
			}
			line += "  Ex: " + strings.Join(examples, ", ")
		}
		b.row(line)
	}
	b.boxBottom()
}

func (b *reportBuilder) records(records []Record) {
	b.line("")
	b.line(strings.Repeat("=", reportWidth))
	b.line("  DETALHES POR REGISTRO")
	b.line(strings.Repeat("=", reportWidth))

	groups := make(map[Outcome][]Record)
	for _, r := range records {
		groups[r.Outcome()] = append(groups[r.Outcome()], r)
	}

	for _, outcome := range []Outcome{FalseNegative, FalsePositive, TruePositive, TrueNegative} {
		list := groups[outcome]
		if len(list) == 0 {
			continue
		}
		icon := "✓"
		if outcome == FalseNegative || outcome == FalsePositive {
			icon = "⚠️"
		}
		b.line("")
		b.line(fmt.Sprintf("  [%s] - %d registro(s) %s", outcome, len(list), icon))
		b.line("  " + strings.Repeat("-", 76))

		for i, r := range list {
			if i == recordsPerGroup {
				break
			}
			b.line("  ID: " + r.ID)
			b.line("  Texto: " + Summarize(r.Text, summaryRunes))
			if len(r.Detections) == 0 {
				b.line("  Detecções: Nenhuma")
			} else {
				var parts []string
				for j, d := range r.Detections {
					if j == detectionsShown {
						break
					}
					parts = append(parts, fmt.Sprintf("%s='%s' (conf:%.2f, pos:%d)", d.Kind, d.Value, d.Confidence, d.Span.Start))
				}
				b.line("  Detecções: " + strings.Join(parts, "; "))
			}
			b.line("")
		}
		if len(list) > recordsPerGroup {
			b.line(fmt.Sprintf("  ... e mais %d registro(s)", len(list)-recordsPerGroup))
		}
	}
}

// Bar draws value in [0,1] as a fixed-width progress bar
func Bar(value float64, cells int) string {
	filled := int(value * float64(cells))
	filled = max(0, min(cells, filled))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", cells-filled) + "]"
}

// Summarize flattens newlines and cuts text to n runes, marking the cut
func Summarize(text string, n int) string {
	cut := strings.ReplaceAll(truncateRunes(text, n), "\n", " ")
	if utf8.RuneCountInString(text) > n {
		cut += "..."
	}
	return cut
}

func truncateRunes(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// widths measures box-drawing characters as one cell regardless of locale
var widths = func() *runewidth.Condition {
	c := runewidth.NewCondition()
	c.EastAsianWidth = false
	return c
}()

func rule(n int) string { return strings.Repeat("─", n) }

// center pads s to width the way Python's str.center does: when the
// padding is odd, the extra space goes left only if width is odd.
func center(s string, width int) string {
	w := widths.StringWidth(s)
	if w >= width {
		return s
	}
	marg := width - w
	left := marg/2 + (marg & width & 1)
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", marg-left)
}

// ljust pads s on the right to width display cells
func ljust(s string, width int) string {
	w := widths.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}
