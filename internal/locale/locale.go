// Package locale holds the user-facing string tables. Core packages emit
// structured data only; rendering and wording live at the command surface,
// which picks one table at startup.
package locale

// Table maps message keys to display strings.
type Table map[string]string

// Message keys.
const (
	KeyDisabled        = "disabled"
	KeyOnboarding      = "onboarding"
	KeyPickMode        = "pick_mode"
	KeyPickTier        = "pick_tier"
	KeyPickMuteScope   = "pick_mute_scope"
	KeyNudgeTitle      = "nudge_title"
	KeyNudgeHint       = "nudge_hint"
	KeyActionContinue  = "action_continue"
	KeyActionAsk       = "action_switch_ask"
	KeyActionLight     = "action_switch_light"
	KeyActionMode      = "action_change_mode"
	KeyActionMute      = "action_mute_rule"
	KeyActionTemplate  = "action_guard_template"
	KeyScopeSession    = "scope_session"
	KeyScopeWorkspace  = "scope_workspace"
	KeyScopeGlobal     = "scope_global"
	KeyTemplateCopied  = "template_copied"
	KeyModeSaved       = "mode_saved"
	KeyTierSaved       = "tier_saved"
	KeyMutesCleared    = "mutes_cleared"
	KeyNoMutes         = "no_mutes"
	KeyLogCleared      = "log_cleared"
	KeyLastHitCleared  = "last_hit_cleared"
	KeyBehaviorCleared = "behavior_cleared"
	KeyDriftTitle      = "drift_title"
	KeyDriftHint       = "drift_hint"
)

var en = Table{
	KeyDisabled:        "throttle is disabled; enable it in throttle.config.yaml or THROTTLE_ENABLED=true",
	KeyOnboarding:      "first run: throttle checks each prompt before you send it and suggests a cheaper route when mode and model disagree",
	KeyPickMode:        "select a working mode",
	KeyPickTier:        "select a model tier",
	KeyPickMuteScope:   "mute this rule for",
	KeyNudgeTitle:      "pre-flight check",
	KeyNudgeHint:       "continue keeps your prompt untouched",
	KeyActionContinue:  "continue as-is",
	KeyActionAsk:       "switch to ask mode",
	KeyActionLight:     "switch to light tier",
	KeyActionMode:      "change mode...",
	KeyActionMute:      "mute this rule",
	KeyActionTemplate:  "copy constraints checklist",
	KeyScopeSession:    "this session",
	KeyScopeWorkspace:  "this workspace",
	KeyScopeGlobal:     "everywhere",
	KeyTemplateCopied:  "checklist copied to clipboard",
	KeyModeSaved:       "mode saved",
	KeyTierSaved:       "tier saved",
	KeyMutesCleared:    "all muted rules cleared",
	KeyNoMutes:         "no muted rules",
	KeyLogCleared:      "hit log cleared",
	KeyLastHitCleared:  "last hit cleared",
	KeyBehaviorCleared: "behavior log cleared",
	KeyDriftTitle:      "doc drift",
	KeyDriftHint:       "directories without a README tend to drift from their docs",
}

var zh = Table{
	KeyDisabled:        "throttle 已停用；在 throttle.config.yaml 或 THROTTLE_ENABLED=true 中启用",
	KeyOnboarding:      "首次运行：throttle 会在发送前检查每条提示词，在模式与模型不匹配时建议更省的路线",
	KeyPickMode:        "选择工作模式",
	KeyPickTier:        "选择模型档位",
	KeyPickMuteScope:   "静音此规则的范围",
	KeyNudgeTitle:      "发送前检查",
	KeyNudgeHint:       "选择继续不会改动你的提示词",
	KeyActionContinue:  "按原样继续",
	KeyActionAsk:       "切换到 ask 模式",
	KeyActionLight:     "切换到 light 档位",
	KeyActionMode:      "更改模式...",
	KeyActionMute:      "静音此规则",
	KeyActionTemplate:  "复制约束清单",
	KeyScopeSession:    "本次会话",
	KeyScopeWorkspace:  "当前工作区",
	KeyScopeGlobal:     "全局",
	KeyTemplateCopied:  "清单已复制到剪贴板",
	KeyModeSaved:       "模式已保存",
	KeyTierSaved:       "档位已保存",
	KeyMutesCleared:    "已清除全部静音规则",
	KeyNoMutes:         "没有静音规则",
	KeyLogCleared:      "命中日志已清空",
	KeyLastHitCleared:  "最近命中已清除",
	KeyBehaviorCleared: "行为日志已清空",
	KeyDriftTitle:      "文档漂移",
	KeyDriftHint:       "缺少 README 的目录更容易偏离文档",
}

// Pick returns the table for a locale code, falling back to English for
// anything unrecognized.
func Pick(code string) Table {
	if code == "zh" || code == "zh-cn" || code == "zh-CN" {
		return zh
	}
	return en
}

// Get looks up a key, falling back to English, then to the key itself so a
// missing entry is visible rather than blank.
func (t Table) Get(key string) string {
	if s, ok := t[key]; ok {
		return s
	}
	if s, ok := en[key]; ok {
		return s
	}
	return key
}
