// Package ui serves the embedded control dashboard.
package ui

import (
	"html/template"
	"net/http"
)

// Handler returns the dashboard handler, mounted under /ui/.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/ui/" && r.URL.Path != "/ui/index.html" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		tmpl.Execute(w, nil)
	})
}

var tmpl = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>HID Server</title>
    <style>
        * { box-sizing: border-box; margin: 0; padding: 0; }
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'SF Pro Display', 'Segoe UI', Roboto, sans-serif;
            background: linear-gradient(135deg, #1a1a2e 0%, #16213e 100%);
            color: #e2e8f0;
            min-height: 100vh;
            padding: 2rem;
        }
        .container { max-width: 900px; margin: 0 auto; }
        h1 {
            font-size: 2rem;
            font-weight: 700;
            margin-bottom: 0.5rem;
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            -webkit-background-clip: text;
            -webkit-text-fill-color: transparent;
        }
        .topline {
            display: flex;
            align-items: center;
            gap: 0.75rem;
            margin-bottom: 2rem;
        }
        .pill {
            padding: 0.25rem 0.75rem;
            border-radius: 999px;
            font-size: 0.8rem;
            font-weight: 600;
            background: rgba(255,255,255,0.1);
        }
        .pill.running { background: rgba(34,197,94,0.25); color: #86efac; }
        .pill.paused { background: rgba(246,211,101,0.25); color: #fde68a; }
        .pill.idle { background: rgba(255,255,255,0.08); color: #94a3b8; }
        #ws-dot {
            width: 10px; height: 10px; border-radius: 50%;
            background: #ef4444;
        }
        #ws-dot.open { background: #22c55e; }
        .card {
            background: rgba(255,255,255,0.05);
            backdrop-filter: blur(20px);
            border: 1px solid rgba(255,255,255,0.1);
            border-radius: 16px;
            padding: 1.5rem;
            margin-bottom: 1.5rem;
        }
        .card h2 {
            font-size: 1.25rem;
            margin-bottom: 1rem;
            color: #a5b4fc;
            display: flex;
            justify-content: space-between;
            align-items: center;
        }
        .script-item {
            display: flex;
            justify-content: space-between;
            align-items: center;
            background: rgba(255,255,255,0.03);
            border-radius: 12px;
            padding: 0.75rem 1rem;
            margin-bottom: 0.5rem;
        }
        .script-name { font-weight: 600; }
        .script-meta { font-size: 0.8rem; color: #94a3b8; }
        .row {
            display: flex;
            align-items: center;
            gap: 0.5rem;
            margin-bottom: 0.75rem;
            flex-wrap: wrap;
        }
        .row label { font-size: 0.875rem; color: #94a3b8; }
        input[type="text"], input[type="number"], input[type="password"] {
            background: rgba(255,255,255,0.1);
            border: 1px solid rgba(255,255,255,0.2);
            border-radius: 8px;
            padding: 0.5rem;
            color: #e2e8f0;
            font-size: 0.875rem;
        }
        input:focus { outline: none; border-color: #667eea; }
        .btn {
            background: linear-gradient(135deg, #667eea 0%, #764ba2 100%);
            border: none;
            border-radius: 8px;
            padding: 0.6rem 1.2rem;
            color: white;
            font-weight: 600;
            cursor: pointer;
            transition: transform 0.2s, box-shadow 0.2s;
            font-size: 0.875rem;
        }
        .btn:hover { transform: translateY(-2px); box-shadow: 0 4px 20px rgba(102,126,234,0.4); }
        .btn-small { padding: 0.4rem 0.8rem; font-size: 0.8rem; }
        .btn-secondary {
            background: rgba(255,255,255,0.1);
            border: 1px solid rgba(255,255,255,0.2);
        }
        .btn-danger { background: rgba(239,68,68,0.8); }
        .btn-warning {
            background: linear-gradient(135deg, #f6d365 0%, #fda085 100%);
            color: #1e293b;
        }
        #trace-log {
            font-family: 'SF Mono', Menlo, Consolas, monospace;
            font-size: 0.75rem;
            color: #94a3b8;
            background: rgba(0,0,0,0.4);
            border-radius: 8px;
            padding: 0.75rem;
            height: 240px;
            overflow-y: auto;
            white-space: pre;
        }
        #status-bar {
            position: fixed;
            bottom: 2rem;
            right: 2rem;
            padding: 1rem 1.5rem;
            background: rgba(0,0,0,0.9);
            border-radius: 12px;
            border: 1px solid rgba(255,255,255,0.2);
            display: none;
            font-size: 0.875rem;
        }
        #status-bar.error { border-color: rgba(239,68,68,0.6); color: #f87171; }
    </style>
</head>
<body>
    <div class="container">
        <h1>HID Server</h1>
        <div class="topline">
            <div id="ws-dot" title="WebSocket connection"></div>
            <span id="state-pill" class="pill idle">idle</span>
            <span id="current-script" class="script-meta"></span>
        </div>

        <div class="card">
            <h2>Macro Control</h2>
            <div class="row">
                <button class="btn btn-warning btn-small" onclick="macroAction('pause_macro')">Pause</button>
                <button class="btn btn-small" onclick="macroAction('resume_macro')">Resume</button>
                <button class="btn btn-danger btn-small" onclick="macroAction('stop_macro')">Stop</button>
            </div>
        </div>

        <div class="card">
            <h2>Scripts <button class="btn btn-secondary btn-small" onclick="loadScripts()">Refresh</button></h2>
            <div id="script-list"><p class="script-meta">Loading...</p></div>
            <div class="row" style="margin-top: 1rem;">
                <input type="file" id="upload-file" accept=".ahk">
                <button class="btn btn-small" onclick="uploadScript()">Upload</button>
            </div>
        </div>

        <div class="card">
            <h2>Direct Input</h2>
            <div class="row">
                <label>Key</label>
                <input type="text" id="key-input" placeholder="enter" size="10">
                <label>Hold ms</label>
                <input type="number" id="key-hold" value="100" min="0" style="width: 5rem;">
                <button class="btn btn-small" onclick="sendKey()">Send Key</button>
            </div>
            <div class="row">
                <label>Combo</label>
                <input type="text" id="combo-input" placeholder="ctrl+alt+delete" size="16">
                <button class="btn btn-small" onclick="sendCombo()">Send Combo</button>
            </div>
            <div class="row">
                <label>X</label>
                <input type="number" id="mouse-x" value="0" style="width: 6rem;">
                <label>Y</label>
                <input type="number" id="mouse-y" value="0" style="width: 6rem;">
                <button class="btn btn-small" onclick="moveMouse()">Move</button>
                <button class="btn btn-small" onclick="clickMouse()">Click</button>
            </div>
        </div>

        <div class="card">
            <h2>Session</h2>
            <div class="row">
                <label>Step size</label>
                <input type="number" id="step-size" value="1.0" min="0.1" max="3.0" step="0.1" style="width: 5rem;">
                <button class="btn btn-small" onclick="saveSession()">Save</button>
                <button class="btn btn-secondary btn-small" onclick="clearSession()">Clear</button>
                <span id="session-script" class="script-meta"></span>
            </div>
        </div>

        <div class="card">
            <h2>Report Trace <button class="btn btn-secondary btn-small" onclick="clearTrace()">Clear</button></h2>
            <div id="trace-log"></div>
        </div>

        <div class="card">
            <h2>API Token</h2>
            <div class="row">
                <input type="password" id="token-input" placeholder="Bearer token (empty if auth disabled)" size="30">
                <button class="btn btn-small" onclick="saveToken()">Save</button>
            </div>
        </div>
    </div>

    <div id="status-bar"></div>

    <script>
        let token = localStorage.getItem('hid_token') || '';
        let ws = null;
        let traceLines = [];

        function showStatus(msg, isError) {
            const bar = document.getElementById('status-bar');
            bar.textContent = msg;
            bar.className = isError ? 'error' : '';
            bar.style.display = 'block';
            setTimeout(() => { bar.style.display = 'none'; }, 3000);
        }

        async function api(path, opts) {
            opts = opts || {};
            opts.headers = opts.headers || {};
            if (token) opts.headers['Authorization'] = 'Bearer ' + token;
            const res = await fetch(path, opts);
            if (!res.ok) {
                const text = await res.text();
                throw new Error(text.trim() || res.statusText);
            }
            return res.json();
        }

        function saveToken() {
            token = document.getElementById('token-input').value;
            localStorage.setItem('hid_token', token);
            showStatus('Token saved');
            connectWS();
            loadScripts();
        }

        function renderStatus(st) {
            const pill = document.getElementById('state-pill');
            pill.textContent = st.state || st.status;
            pill.className = 'pill ' + (st.state || st.status);
            document.getElementById('current-script').textContent =
                st.script || st.current_script || '';
        }

        function renderScripts(list) {
            const container = document.getElementById('script-list');
            if (!list || list.length === 0) {
                container.innerHTML = '<p class="script-meta">No scripts uploaded yet.</p>';
                return;
            }
            container.innerHTML = list.map(s => ` + "`" + `
                <div class="script-item">
                    <div>
                        <div class="script-name">${s.name}</div>
                        <div class="script-meta">${(s.size / 1024).toFixed(1)} KB</div>
                    </div>
                    <div style="display: flex; gap: 0.5rem;">
                        <button class="btn btn-small" onclick="startMacro('${s.name}')">Run</button>
                        <button class="btn btn-danger btn-small" onclick="deleteScript('${s.name}')">Delete</button>
                    </div>
                </div>
            ` + "`" + `).join('');
        }

        async function loadScripts() {
            try {
                const data = await api('/api/v1/scripts');
                renderScripts(data.scripts);
            } catch (e) {
                showStatus('Failed to load scripts: ' + e.message, true);
            }
        }

        async function loadStatus() {
            try {
                renderStatus(await api('/api/v1/status'));
            } catch (e) {
                showStatus('Failed to load status: ' + e.message, true);
            }
        }

        async function startMacro(name) {
            try {
                const data = await api('/api/v1/start_macro', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: JSON.stringify({script_name: name})
                });
                showStatus(data.message);
            } catch (e) {
                showStatus(e.message, true);
            }
            loadStatus();
        }

        async function macroAction(action) {
            try {
                const data = await api('/api/v1/' + action, {method: 'POST'});
                showStatus(data.message);
            } catch (e) {
                showStatus(e.message, true);
            }
            loadStatus();
        }

        async function deleteScript(name) {
            if (!confirm('Delete ' + name + '?')) return;
            try {
                const data = await api('/api/v1/delete_script/' + encodeURIComponent(name), {method: 'DELETE'});
                showStatus(data.message);
            } catch (e) {
                showStatus(e.message, true);
            }
            loadScripts();
        }

        async function uploadScript() {
            const input = document.getElementById('upload-file');
            if (!input.files || input.files.length === 0) {
                showStatus('Choose a file first', true);
                return;
            }
            const form = new FormData();
            form.append('file', input.files[0]);
            try {
                const data = await api('/api/v1/upload_script', {method: 'POST', body: form});
                showStatus(data.message);
                input.value = '';
            } catch (e) {
                showStatus(e.message, true);
            }
            loadScripts();
        }

        async function sendKey() {
            const key = document.getElementById('key-input').value;
            const hold = parseInt(document.getElementById('key-hold').value) || 0;
            try {
                const data = await api('/api/v1/send_key', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: JSON.stringify({key: key, hold_ms: hold})
                });
                showStatus(data.message);
            } catch (e) {
                showStatus(e.message, true);
            }
        }

        async function sendCombo() {
            const combo = document.getElementById('combo-input').value;
            try {
                const data = await api('/api/v1/send_key_combo', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: JSON.stringify({combo: combo})
                });
                showStatus(data.message);
            } catch (e) {
                showStatus(e.message, true);
            }
        }

        async function moveMouse() {
            const x = parseInt(document.getElementById('mouse-x').value) || 0;
            const y = parseInt(document.getElementById('mouse-y').value) || 0;
            try {
                const data = await api('/api/v1/move_mouse', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: JSON.stringify({x: x, y: y})
                });
                showStatus(data.message);
            } catch (e) {
                showStatus(e.message, true);
            }
        }

        async function clickMouse() {
            const x = parseInt(document.getElementById('mouse-x').value) || 0;
            const y = parseInt(document.getElementById('mouse-y').value) || 0;
            try {
                const data = await api('/api/v1/click', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: JSON.stringify({x: x, y: y})
                });
                showStatus(data.message);
            } catch (e) {
                showStatus(e.message, true);
            }
        }

        async function saveSession() {
            const step = parseFloat(document.getElementById('step-size').value);
            try {
                const data = await api('/api/v1/session_state', {
                    method: 'POST',
                    headers: {'Content-Type': 'application/json'},
                    body: JSON.stringify({step_size: step})
                });
                renderSession(data.session_state);
                showStatus('Session saved');
            } catch (e) {
                showStatus(e.message, true);
            }
        }

        async function clearSession() {
            try {
                const data = await api('/api/v1/session_state', {method: 'DELETE'});
                renderSession(data.session_state);
                showStatus('Session cleared');
            } catch (e) {
                showStatus(e.message, true);
            }
        }

        function renderSession(st) {
            if (!st) return;
            document.getElementById('step-size').value = st.step_size;
            document.getElementById('session-script').textContent =
                st.selected_script ? 'selected: ' + st.selected_script : '';
        }

        function appendTrace(line) {
            traceLines.push(line);
            if (traceLines.length > 200) traceLines = traceLines.slice(-200);
            const el = document.getElementById('trace-log');
            el.textContent = traceLines.join('\n');
            el.scrollTop = el.scrollHeight;
        }

        function clearTrace() {
            traceLines = [];
            document.getElementById('trace-log').textContent = '';
        }

        function connectWS() {
            if (ws) { ws.onclose = null; ws.close(); }
            const proto = location.protocol === 'https:' ? 'wss://' : 'ws://';
            let url = proto + location.host + '/ws';
            if (token) url += '?token=' + encodeURIComponent(token);
            ws = new WebSocket(url);

            ws.onopen = () => {
                document.getElementById('ws-dot').className = 'open';
                ws.send(JSON.stringify({
                    type: 'auth',
                    payload: {token: token, client_name: 'dashboard', client_version: '1'}
                }));
            };

            ws.onclose = () => {
                document.getElementById('ws-dot').className = '';
                setTimeout(connectWS, 2000);
            };

            ws.onmessage = (event) => {
                const msg = JSON.parse(event.data);
                switch (msg.type) {
                    case 'status':
                        renderStatus(msg.payload);
                        break;
                    case 'trace':
                        appendTrace(msg.payload.line);
                        break;
                    case 'scripts':
                        renderScripts(msg.payload.scripts);
                        break;
                    case 'session':
                        renderSession(msg.payload);
                        break;
                }
            };
        }

        document.getElementById('token-input').value = token;
        connectWS();
        loadScripts();
        loadStatus();
    </script>
</body>
</html>`))
