package apps

// AnalyticsApp shows live ingest metrics from GET /api/stats.
type AnalyticsApp struct{}

func (AnalyticsApp) ID() string          { return "analytics-app" }
func (AnalyticsApp) Name() string        { return "Analytics" }
func (AnalyticsApp) Description() string { return "Analytics and visualization for security data" }
func (AnalyticsApp) Icon() string        { return "📊" }

func (AnalyticsApp) Render() Fragment {
	return Fragment{HTML: analyticsHTML, CSS: analyticsCSS, JS: analyticsJS}
}

const analyticsHTML = `
<div class="analytics-container">
  <h1 class="analytics-title">📊 Analytics Dashboard</h1>
  <div class="metric-grid">
    <div class="metric-card"><div class="metric-value" id="metric-rate">0</div><div class="metric-label">Logs / sec</div></div>
    <div class="metric-card"><div class="metric-value" id="metric-total">0</div><div class="metric-label">Total Ingested</div></div>
    <div class="metric-card"><div class="metric-value" id="metric-current">0</div><div class="metric-label">Retained</div></div>
    <div class="metric-card"><div class="metric-value" id="metric-sources">0</div><div class="metric-label">Sources</div></div>
    <div class="metric-card"><div class="metric-value" id="metric-bytes">0</div><div class="metric-label">Bytes Ingested</div></div>
    <div class="metric-card"><div class="metric-value" id="metric-errors">0</div><div class="metric-label">Decode Errors</div></div>
  </div>
</div>
`

const analyticsCSS = `
.analytics-container { max-width: 1000px; margin: 0 auto; }
.metric-grid { display: grid; grid-template-columns: repeat(3, 1fr); gap: 20px; margin-top: 20px; }
.metric-card { padding: 20px; background: #f8f9fa; border-radius: 8px; text-align: center; }
.metric-value { font-size: 2em; color: #667eea; font-weight: bold; }
.metric-label { color: #666; font-size: 0.9em; }
`

const analyticsJS = `
function refreshAnalytics() {
  fetch('/api/stats')
    .then(function (r) { return r.json(); })
    .then(function (stats) {
      document.getElementById('metric-rate').textContent = stats.ingestion_rate.toFixed(1);
      document.getElementById('metric-total').textContent = stats.total_logs;
      document.getElementById('metric-current').textContent = stats.current_logs + ' / ' + stats.max_logs;
      document.getElementById('metric-sources').textContent = stats.sources;
      document.getElementById('metric-bytes').textContent = stats.bytes_ingested;
      document.getElementById('metric-errors').textContent = stats.decode_errors;
    })
    .catch(function (err) { console.error('stats refresh failed', err); });
}

refreshAnalytics();
setInterval(refreshAnalytics, 2000);
`
