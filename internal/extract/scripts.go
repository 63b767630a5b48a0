package extract

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Harris404/Mimic-Red/internal/config"
)

// jsString renders a Go string as a safe JS string literal.
func jsString(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

// jsStringList renders a Go slice as a JS array literal of strings.
func jsStringList(list []string) string {
	b, _ := json.Marshal(list)
	return string(b)
}

// searchScript scrapes the visible search result cards into a JSON array.
// Only anchors carrying a note id are kept; the tokenized href is preserved
// verbatim because the token cannot be reconstructed.
func (p *Pipeline) searchScript() string {
	itemSel := strings.Join(p.selectors.Field(config.SelSearchItem), ", ")
	return fmt.Sprintf(`(() => {
	const out = [];
	const items = document.querySelectorAll(%s);
	for (const item of items) {
		const a = item.querySelector('a[href*="/search_result/"], a[href*="/explore/"]');
		if (!a) continue;
		const href = a.getAttribute('href') || '';
		const m = href.match(/\/(?:search_result|explore)\/([0-9a-zA-Z]+)/);
		if (!m) continue;
		let title = '';
		for (const sel of %s) {
			const el = item.querySelector(sel);
			if (el && el.textContent.trim()) { title = el.textContent.trim(); break; }
		}
		let author = '';
		for (const sel of %s) {
			const el = item.querySelector(sel);
			if (el && el.textContent.trim()) { author = el.textContent.trim(); break; }
		}
		out.push({note_id: m[1], title: title, author_name: author, href: href});
	}
	return JSON.stringify(out);
})()`,
		jsString(itemSel),
		jsStringList(p.selectors.Field(config.SelSearchTitle)),
		jsStringList(p.selectors.Field(config.SelSearchAuthor)),
	)
}

// snapshotScript reads the note entry out of window.__INITIAL_STATE__ before
// the DOM is touched. Lookup is exact id first, then substring match either
// direction; the result or a tagged error comes back as a JSON string.
func snapshotScript(noteID string) string {
	id := jsString(noteID)
	return fmt.Sprintf(`(() => {
	try {
		const id = %s;
		const state = window.__INITIAL_STATE__;
		const map = state && state.note && state.note.noteDetailMap;
		if (!map) return JSON.stringify({error: 'no_state'});
		let entry = map[id];
		if (!entry) {
			for (const key of Object.keys(map)) {
				if (key.indexOf(id) !== -1 || id.indexOf(key) !== -1) { entry = map[key]; break; }
			}
		}
		if (!entry || !entry.note) return JSON.stringify({error: 'note_missing'});
		return JSON.stringify(entry.note);
	} catch (e) {
		return JSON.stringify({error: String(e)});
	}
})()`, id)
}

// stateCommentsScript reads the note's comment list out of the client's
// comment state, nested replies included. Key lookup mirrors snapshotScript:
// exact id first, then substring match either direction.
func stateCommentsScript(noteID string) string {
	id := jsString(noteID)
	return fmt.Sprintf(`(() => {
	try {
		const id = %s;
		const state = window.__INITIAL_STATE__;
		const map = state && state.comment && state.comment.commentsMap;
		if (!map) return JSON.stringify({error: 'no_state'});
		let entry = map[id];
		if (!entry) {
			for (const key of Object.keys(map)) {
				if (key.indexOf(id) !== -1 || id.indexOf(key) !== -1) { entry = map[key]; break; }
			}
		}
		if (!entry) return JSON.stringify({error: 'comments_missing'});
		const list = Array.isArray(entry) ? entry : (entry.comments || entry.list || []);
		return JSON.stringify(list);
	} catch (e) {
		return JSON.stringify({error: String(e)});
	}
})()`, id)
}

// dismissOverlayScript closes login prompts and image masks that block the
// note text. Failures are swallowed in-page.
const dismissOverlayScript = `(() => {
	let clicked = 0;
	const btns = document.querySelectorAll('.close-circle, .close-box, [class*="close-button"], [class*="closeIcon"]');
	for (const b of btns) {
		try { b.click(); clicked++; } catch (e) {}
	}
	return clicked;
})()`

// expandTextScript clicks the truncation toggle so the full body renders.
const expandTextScript = `(() => {
	const els = document.querySelectorAll('[class*="expand"], .show-more');
	for (const el of els) {
		try { el.click(); return true; } catch (e) {}
	}
	return false;
})()`

// commentScript scrapes rendered comment nodes into a JSON array, deduped by
// text within the page.
func (p *Pipeline) commentScript() string {
	itemSel := strings.Join(p.selectors.Field(config.SelCommentItem), ", ")
	return fmt.Sprintf(`(() => {
	const out = [];
	const seen = new Set();
	const items = document.querySelectorAll(%s);
	for (const item of items) {
		let text = '';
		for (const sel of %s) {
			const el = item.querySelector(sel);
			if (el && el.textContent.trim().length > 1) { text = el.textContent.trim(); break; }
		}
		if (!text || seen.has(text)) continue;
		seen.add(text);
		let author = '';
		for (const sel of %s) {
			const el = item.querySelector(sel);
			if (el && el.textContent.trim()) { author = el.textContent.trim(); break; }
		}
		let likes = 0;
		for (const sel of %s) {
			const el = item.querySelector(sel);
			if (el) {
				const n = parseInt(el.textContent.replace(/[^0-9]/g, ''), 10);
				if (!isNaN(n)) { likes = n; break; }
			}
		}
		const cls = String(item.className || '');
		const isReply = cls.indexOf('reply') !== -1 || !!item.closest('.reply-container');
		out.push({content: text, author_name: author, like_count: likes, is_reply: isReply});
	}
	return JSON.stringify(out);
})()`,
		jsString(itemSel),
		jsStringList(p.selectors.Field(config.SelCommentText)),
		jsStringList(p.selectors.Field(config.SelCommentAuthor)),
		jsStringList(p.selectors.Field(config.SelCommentLikes)),
	)
}
