package apps

// AssetMapApp is the interactive world map over the markers API.
type AssetMapApp struct{}

func (AssetMapApp) ID() string          { return "asset-map" }
func (AssetMapApp) Name() string        { return "Asset Map" }
func (AssetMapApp) Description() string { return "Interactive world map for tracking asset locations" }
func (AssetMapApp) Icon() string        { return "🗺️" }

func (AssetMapApp) Render() Fragment {
	return Fragment{HTML: assetMapHTML, CSS: assetMapCSS, JS: assetMapJS}
}

const assetMapHTML = `
<div class="asset-map-container">
  <h1 class="asset-map-title">🗺️ Asset Map</h1>
  <p class="asset-map-hint">Click map to add a marker · Click a marker to delete it</p>
  <div id="asset-map"></div>
  <div class="asset-map-stats">
    <span id="marker-count">0</span> assets tracked
  </div>
</div>
`

const assetMapCSS = `
.asset-map-container { max-width: 1200px; margin: 0 auto; }
#asset-map { height: 600px; border-radius: 8px; }
.asset-map-hint { color: #666; font-size: 0.9em; }
.asset-map-stats { margin-top: 12px; color: #666; }
`

const assetMapJS = `
(function () {
  const leafletCSS = document.createElement('link');
  leafletCSS.rel = 'stylesheet';
  leafletCSS.href = 'https://unpkg.com/leaflet@1.9.4/dist/leaflet.css';
  document.head.appendChild(leafletCSS);

  const leafletJS = document.createElement('script');
  leafletJS.src = 'https://unpkg.com/leaflet@1.9.4/dist/leaflet.js';
  leafletJS.onload = initAssetMap;
  document.body.appendChild(leafletJS);

  let assetMap;
  let layers = {};

  function initAssetMap() {
    assetMap = L.map('asset-map').setView([20, 0], 2);
    L.tileLayer('https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png', {
      maxZoom: 19,
      attribution: '&copy; OpenStreetMap contributors'
    }).addTo(assetMap);

    loadMarkers();
    assetMap.on('click', function (e) { addMarker(e.latlng.lat, e.latlng.lng); });
  }

  function loadMarkers() {
    fetch('/api/markers')
      .then(function (r) { return r.json(); })
      .then(function (data) {
        (data.markers || []).forEach(placeMarker);
        updateCount();
      });
  }

  function placeMarker(m) {
    const layer = L.marker([m.lat, m.lng]).addTo(assetMap);
    const name = (m.properties && m.properties.name) || 'asset ' + m.id;
    layer.bindPopup(name + '<br><button onclick="window.deleteAssetMarker(' + m.id + ')">Delete</button>');
    layers[m.id] = layer;
  }

  function addMarker(lat, lng) {
    fetch('/api/markers', {
      method: 'POST',
      headers: { 'Content-Type': 'application/json' },
      body: JSON.stringify({ lat: lat, lng: lng, properties: {} })
    })
      .then(function (r) { return r.json(); })
      .then(function (data) {
        placeMarker(data.marker);
        updateCount();
      });
  }

  window.deleteAssetMarker = function (id) {
    fetch('/api/markers/' + id, { method: 'DELETE' }).then(function () {
      if (layers[id]) {
        assetMap.removeLayer(layers[id]);
        delete layers[id];
      }
      updateCount();
    });
  };

  function updateCount() {
    document.getElementById('marker-count').textContent = String(Object.keys(layers).length);
  }
})();
`
