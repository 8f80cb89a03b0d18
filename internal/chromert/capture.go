package chromert

import (
	"context"
	"encoding/base64"
	"time"

	"github.com/chromedp/chromedp"
	"pkt.systems/scribe/schema"
)

// summaryScript distills the visible page into a short text summary for
// workflow synthesis: title, headings, and labeled controls.
const summaryScript = `(() => {
  const parts = [];
  if (document.title) parts.push('title: ' + document.title);
  for (const h of document.querySelectorAll('h1, h2, h3')) {
    const text = (h.textContent || '').trim();
    if (text) parts.push(h.tagName.toLowerCase() + ': ' + text.slice(0, 120));
    if (parts.length > 20) break;
  }
  for (const el of document.querySelectorAll('input, select, textarea, button')) {
    if (parts.length > 40) break;
    const rect = el.getBoundingClientRect();
    if (rect.width === 0 || rect.height === 0) continue;
    const label = el.labels && el.labels.length
      ? (el.labels[0].textContent || '').trim()
      : el.getAttribute('aria-label') || el.name || el.id || '';
    parts.push(el.tagName.toLowerCase() + (label ? ': ' + label.slice(0, 80) : ''));
  }
  return parts.join('\n');
})()`

// CaptureState snapshots the tab after the page has settled: URL, title, a
// text summary for synthesis, and a screenshot.
func (r *Runtime) CaptureState(ctx context.Context, id schema.TabID) (schema.StateSnapshot, error) {
	tctx, err := r.tabContext(id)
	if err != nil {
		return schema.StateSnapshot{}, err
	}
	var (
		url     string
		title   string
		summary string
		shot    []byte
	)
	err = r.runOnTab(ctx, tctx,
		chromedp.Location(&url),
		chromedp.Title(&title),
		chromedp.Evaluate(summaryScript, &summary),
		chromedp.CaptureScreenshot(&shot),
	)
	if err != nil {
		return schema.StateSnapshot{}, err
	}
	snapshot := schema.StateSnapshot{
		Timestamp:    time.Now().UTC(),
		Page:         schema.PageRef{URL: url, Title: title},
		BrowserState: &schema.BrowserState{SummaryText: summary},
		Screenshot:   base64.StdEncoding.EncodeToString(shot),
	}
	return snapshot, nil
}
