package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/betbot/solbet/internal/betflow"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	failStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	okStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("42"))
)

// stateLabel 状态的展示文案
func stateLabel(s betflow.State) string {
	switch s {
	case betflow.StateValidatingInput:
		return "校验输入"
	case betflow.StateFetchingPrice:
		return "获取当前价格"
	case betflow.StateBuildingTransaction:
		return "构建交易"
	case betflow.StateAwaitingSignature:
		return "等待签名"
	case betflow.StateSubmitting:
		return "提交交易"
	case betflow.StateAwaitingConfirmation:
		return "等待链上确认"
	case betflow.StatePersisting:
		return "写入仓位记录"
	case betflow.StateSucceeded:
		return "完成"
	case betflow.StateFailed:
		return "失败"
	default:
		return string(s)
	}
}

// flowSteps 进度视图展示的步骤顺序
var flowSteps = []betflow.State{
	betflow.StateValidatingInput,
	betflow.StateFetchingPrice,
	betflow.StateBuildingTransaction,
	betflow.StateAwaitingSignature,
	betflow.StateSubmitting,
	betflow.StateAwaitingConfirmation,
	betflow.StatePersisting,
}

type statusMsg betflow.Status

type resultMsg struct {
	result *betflow.Result
	err    error
}

// tuiModel 下注进度视图
type tuiModel struct {
	current betflow.State
	reached map[betflow.State]bool
	result  *betflow.Result
	err     error
}

func (m tuiModel) Init() tea.Cmd {
	return nil
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case statusMsg:
		m.current = msg.State
		m.reached[msg.State] = true
		return m, nil
	case resultMsg:
		m.result = msg.result
		m.err = msg.err
		return m, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			// 提交后的流程不可中断；这里只退出视图，编排继续在日志中结束
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m tuiModel) View() string {
	out := titleStyle.Render("solbet 下注") + "\n\n"
	for _, step := range flowSteps {
		label := stateLabel(step)
		switch {
		case m.reached[step] && step != m.current:
			out += doneStyle.Render("  ✓ "+label) + "\n"
		case step == m.current:
			out += "  → " + label + "...\n"
		default:
			out += pendingStyle.Render("  · "+label) + "\n"
		}
	}
	out += "\n"
	if m.result != nil {
		if m.result.Succeeded() {
			out += okStyle.Render(fmt.Sprintf("下注成功  tx=%s", m.result.Position.TransactionID)) + "\n"
		} else {
			out += failStyle.Render("下注失败: "+m.result.UserMessage) + "\n"
		}
	}
	if m.err != nil {
		out += failStyle.Render("错误: "+m.err.Error()) + "\n"
	}
	return out
}

// runTUI 在实时视图下执行下注，返回进程退出码
func runTUI(flow *betflow.Orchestrator, input betflow.PlaceInput) int {
	program := tea.NewProgram(tuiModel{reached: map[betflow.State]bool{}})

	input.OnStatus = func(s betflow.Status) {
		program.Send(statusMsg(s))
	}
	go func() {
		result, err := flow.Place(context.Background(), input)
		program.Send(resultMsg{result: result, err: err})
	}()

	finalModel, err := program.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "状态视图异常: %v\n", err)
		return 1
	}
	m := finalModel.(tuiModel)
	if m.err != nil || m.result == nil || !m.result.Succeeded() {
		return 1
	}
	return 0
}
