package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/betbot/solbet/internal/domain"
)

// MinorUnitsPerMajor 每个主单位对应的最小单位数量（1 SOL = 1e9 lamports）
const MinorUnitsPerMajor = 1_000_000_000

// ToMinorUnits 把主单位金额换算为最小单位
// 向下取整；换算结果必须为正整数
func ToMinorUnits(amountMajor decimal.Decimal) (uint64, error) {
	if amountMajor.Sign() <= 0 {
		return 0, domain.NewFlowError(domain.KindInvalidInput,
			"金额必须为正数: "+amountMajor.String(), nil)
	}
	minor := amountMajor.Mul(decimal.NewFromInt(MinorUnitsPerMajor)).Floor()
	if !minor.IsPositive() {
		return 0, domain.NewFlowError(domain.KindInvalidInput,
			"金额过小，换算后不足 1 个最小单位: "+amountMajor.String(), nil)
	}
	if !minor.BigInt().IsUint64() {
		return 0, domain.NewFlowError(domain.KindInvalidInput,
			"金额超出可表示范围: "+amountMajor.String(), nil)
	}
	return minor.BigInt().Uint64(), nil
}

// Builder 转账指令构建器
// 收款方地址在构造时即完成校验，防止金库配置错误导致资金发往非法地址
type Builder struct {
	recipient Address
}

// NewBuilder 创建构建器
// recipientConfig 解析失败返回 InvalidRecipientConfig，必须阻止后续提交
func NewBuilder(recipientConfig string) (*Builder, error) {
	addr, err := ParseAddress(recipientConfig)
	if err != nil {
		return nil, domain.NewFlowError(domain.KindInvalidRecipientConfig,
			"金库地址配置错误", err)
	}
	return &Builder{recipient: addr}, nil
}

// Recipient 返回已校验的金库地址
func (b *Builder) Recipient() Address {
	return b.recipient
}

// BuildTransfer 构建绑定检查点的未签名转账
// 检查点必须在调用前刚刚获取，保证交易有界的有效窗口
func (b *Builder) BuildTransfer(sender string, amountMajor decimal.Decimal, cp domain.Checkpoint) (*domain.UnsignedTransfer, error) {
	senderAddr, err := ParseAddress(sender)
	if err != nil {
		return nil, domain.NewFlowError(domain.KindInvalidInput,
			"付款方地址非法: "+sender, err)
	}

	minor, err := ToMinorUnits(amountMajor)
	if err != nil {
		return nil, err
	}

	if cp.Blockhash == "" || cp.LastValidBlockHeight == 0 {
		return nil, domain.NewFlowError(domain.KindSubmissionFailed,
			"检查点无效，无法构建交易", nil)
	}

	return &domain.UnsignedTransfer{
		Sender:      senderAddr.String(),
		Recipient:   b.recipient.String(),
		AmountMinor: minor,
		Checkpoint:  cp,
	}, nil
}
