// Package toast turns submit results into short notifications for the
// clients watching a screen.
//
// Toasts travel over the existing live stream as {"type":"toast"} messages,
// so no extra endpoint is needed. The client decides how to render them:
//
//	ws.onmessage = (ev) => {
//	    const msg = JSON.parse(ev.data);
//	    if (msg.type === "toast") showToast(msg.toast.level, msg.toast.message);
//	};
//
// Server code emits through any Emitter:
//
//	toast.Notify(entry, outcome)
//	toast.Warning(entry, "draft expires soon")
package toast
