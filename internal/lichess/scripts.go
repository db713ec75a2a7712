package lichess

const (
	RegionMoves  = "moves"
	RegionAnchor = "anchor"

	panelID         = "ai-coach-field"
	suppressedClass = "empty"
	expandedClass   = "toggle-box--expanded"
)

// Returns null when the FEN or PGN copyables are missing.
const readSnapshotJS = `() => {
	const fen = document.querySelector('.copyables .pair input.copyable');
	const pgn = document.querySelector('.copyables .pgn textarea.copyable');
	if (!fen || !pgn) return null;
	const out = { fen: fen.value || '', pgn: pgn.value || '', feedback: '', comment: '', side: '' };
	const running = document.querySelector('.practice-box .player.running piece');
	if (running) out.side = running.className.includes('white') ? 'white' : 'black';
	const comment = document.querySelector('.practice-box .comment');
	const verdict = comment && comment.querySelector('.verdict');
	if (verdict) {
		out.feedback = verdict.textContent.trim();
		const clone = comment.cloneNode(true);
		clone.querySelector('.verdict').remove();
		out.comment = clone.textContent.trim();
	}
	return out;
}`

// Installs one observer on the document and sorts records into the two
// regions. Safe to run more than once.
const installObserverJS = `() => {
	const w = window;
	if (w.__coachObserver) return true;
	w.__coachMutations = { moves: [], anchor: [] };
	const panelId = '` + panelID + `';
	const entry = (m) => ({
		kind: m.type === 'attributes' ? 'attribute' : 'structural',
		target: (m.target && (m.target.id || m.target.className || m.target.nodeName)) + '',
		attribute: m.attributeName || '',
		added: m.addedNodes ? m.addedNodes.length : 0,
		removed: m.removedNodes ? m.removedNodes.length : 0,
	});
	w.__coachObserver = new MutationObserver((records) => {
		for (const m of records) {
			const t = m.target && m.target.nodeType === 1 ? m.target : (m.target && m.target.parentElement);
			if (!t) continue;
			if (t.closest('.analyse__moves, .tview2')) {
				w.__coachMutations.moves.push(Object.assign(entry(m), { target: 'moves' }));
			}
			if (t.closest('.analyse__side')) {
				const inner = t.closest('#' + panelId);
				if (inner && !(m.type === 'attributes' && t.id === panelId)) continue;
				w.__coachMutations.anchor.push(Object.assign(entry(m), { target: t.id === panelId ? panelId : 'anchor' }));
			}
		}
	});
	w.__coachObserver.observe(document.body, {
		childList: true, subtree: true, attributes: true, attributeFilter: ['class'],
	});
	return true;
}`

const drainJS = `() => {
	const w = window;
	const m = w.__coachMutations || { moves: [], anchor: [] };
	const ui = Array.isArray(w.__coachEvents) ? w.__coachEvents : [];
	w.__coachMutations = { moves: [], anchor: [] };
	w.__coachEvents = [];
	return { moves: m.moves, anchor: m.anchor, ui: ui, installed: !!w.__coachObserver };
}`

const disconnectObserverJS = `() => {
	const w = window;
	if (w.__coachObserver) { w.__coachObserver.disconnect(); w.__coachObserver = null; }
	return true;
}`

// Builds the panel once and keeps the node on window so that reattaching
// reuses the same instance.
const attachPanelJS = `(title) => {
	const w = window;
	w.__coachEvents = w.__coachEvents || [];
	let panel = w.__coachPanel;
	if (!panel) {
		panel = document.createElement('fieldset');
		panel.className = 'analyse__wiki toggle-box toggle-box--toggle toggle-box--ready';
		panel.id = '` + panelID + `';
		panel.innerHTML = '<legend tabindex="0"></legend>' +
			'<div class="ai-chat-container">' +
			'<div class="ai-chat-messages" id="ai-chat-messages"></div>' +
			'<div class="ai-chat-input-container"><div class="ai-chat-input-row">' +
			'<textarea class="ai-chat-input" id="ai-chat-input" placeholder="Ask your AI coach..." rows="1"></textarea>' +
			'<button class="ai-chat-send-btn" id="ai-chat-send-btn" title="Send (Ctrl+Enter)">Send</button>' +
			'</div><div class="ai-chat-shortcut-row">' +
			'<button class="ai-chat-shortcut-btn" id="ai-ask-position-btn">Explain Position</button>' +
			'<button class="ai-chat-shortcut-btn" id="ai-clear-chat-btn">Clear Chat</button>' +
			'</div></div></div>';
		panel.querySelector('legend').textContent = title;
		const input = panel.querySelector('#ai-chat-input');
		const send = () => {
			const text = input.value.trim();
			if (!text) return;
			input.value = '';
			w.__coachEvents.push({ type: 'submit', text });
		};
		panel.querySelector('#ai-chat-send-btn').addEventListener('click', send);
		input.addEventListener('keydown', (ev) => {
			if (ev.key === 'Enter' && (ev.ctrlKey || ev.shiftKey)) { ev.preventDefault(); send(); }
		});
		panel.querySelector('#ai-ask-position-btn').addEventListener('click', () => w.__coachEvents.push({ type: 'shortcut' }));
		panel.querySelector('#ai-clear-chat-btn').addEventListener('click', () => w.__coachEvents.push({ type: 'clear' }));
		document.addEventListener('keydown', (ev) => {
			const a = document.activeElement;
			const typing = a && (a.tagName === 'INPUT' || a.tagName === 'TEXTAREA' || a.isContentEditable);
			if (ev.code === 'Space' && !typing) { ev.preventDefault(); w.__coachEvents.push({ type: 'shortcut' }); }
		});
		w.__coachPanel = panel;
	}
	const side = document.querySelector('.analyse__side');
	if (!side) return false;
	if (panel.parentElement !== side) side.appendChild(panel);
	return true;
}`

const panelStateJS = `() => {
	const panel = window.__coachPanel;
	const side = document.querySelector('.analyse__side');
	return {
		present: !!(panel && side && side.contains(panel) && document.getElementById('` + panelID + `') === panel),
		suppressed: !!(panel && panel.classList.contains('` + suppressedClass + `')),
	};
}`

const unsuppressJS = `() => {
	const panel = window.__coachPanel;
	if (panel) panel.classList.remove('` + suppressedClass + `');
	return true;
}`

const reattachJS = `() => {
	const panel = window.__coachPanel;
	const side = document.querySelector('.analyse__side');
	if (!panel || !side) return false;
	side.appendChild(panel);
	return true;
}`

const expandJS = `() => {
	const panel = window.__coachPanel;
	if (panel && !panel.classList.contains('` + expandedClass + `')) {
		const legend = panel.querySelector('legend');
		if (legend) legend.click();
	}
	return true;
}`

const renderJS = `(html, busy) => {
	const panel = window.__coachPanel;
	if (!panel) return false;
	const box = panel.querySelector('#ai-chat-messages');
	if (box) { box.innerHTML = html; box.scrollTop = box.scrollHeight; }
	const send = panel.querySelector('#ai-chat-send-btn');
	if (send) send.disabled = !!busy;
	return true;
}`
