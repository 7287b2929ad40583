package apps

// SearchApp is the log search page: a query box over GET /api/logs.
type SearchApp struct{}

func (SearchApp) ID() string          { return "search-app" }
func (SearchApp) Name() string        { return "Search" }
func (SearchApp) Description() string { return "Advanced search for events, alerts, and logs" }
func (SearchApp) Icon() string        { return "🔍" }

func (SearchApp) Render() Fragment {
	return Fragment{HTML: searchHTML, CSS: searchCSS, JS: searchJS}
}

const searchHTML = `
<div class="search-page-container">
  <h1 class="search-page-title">🔍 Search Everything</h1>
  <div class="search-bar-wrapper">
    <textarea id="main-search-input" class="main-search-bar" rows="3"
              placeholder="Type your search query and press Enter"></textarea>
    <button onclick="executeSearch()" class="main-search-button">Search</button>
  </div>
  <div id="search-results" class="search-results">
    <p class="search-hint">Enter a search query to see results</p>
  </div>
</div>
`

const searchCSS = `
.search-page-container { max-width: 1000px; margin: 0 auto; }
.main-search-bar { width: 100%; padding: 12px; border: 1px solid #ddd; border-radius: 6px; }
.main-search-button { padding: 10px 24px; background: #667eea; color: white; border: none; border-radius: 6px; cursor: pointer; }
.search-hint { color: #999; text-align: center; }
.search-result-row { padding: 12px; border-left: 4px solid #667eea; background: #f8f9fa; margin-bottom: 8px; border-radius: 5px; }
.search-result-meta { color: #666; font-size: 0.9em; }
`

const searchJS = `
async function executeSearch() {
  const input = document.getElementById('main-search-input');
  const query = input.value.trim();
  const resultsDiv = document.getElementById('search-results');
  if (!query) {
    resultsDiv.innerHTML = '<p class="search-hint">Please enter a search term</p>';
    return;
  }

  resultsDiv.innerHTML = '<p class="search-hint">Searching...</p>';
  try {
    const response = await fetch('/api/logs?q=' + encodeURIComponent(query) + '&limit=100');
    const data = await response.json();
    if (!data.logs || data.logs.length === 0) {
      resultsDiv.innerHTML = '<p class="search-hint">No logs found. Total logs in store: ' + data.total + '</p>';
      return;
    }

    let html = '<h3>' + data.returned + ' of ' + data.total + ' total logs</h3>';
    data.logs.forEach(function (log) {
      const message = log.message || log.event_id || '(no message)';
      html += '<div class="search-result-row">' +
        '<strong>' + String(message) + '</strong>' +
        '<div class="search-result-meta">' + (log.source || '') + ' · ' + (log.received_at || '') + '</div>' +
        '<details><summary>Raw JSON</summary><pre>' + JSON.stringify(log, null, 2) + '</pre></details>' +
        '</div>';
    });
    resultsDiv.innerHTML = html;
  } catch (err) {
    resultsDiv.innerHTML = '<p class="search-hint">Search failed: ' + err.message + '</p>';
  }
}

document.getElementById('main-search-input').addEventListener('keydown', function (e) {
  if (e.key === 'Enter' && !e.shiftKey) {
    e.preventDefault();
    executeSearch();
  }
});
`
