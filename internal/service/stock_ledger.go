package service

import (
	"sort"

	"github.com/lingxian-next/internal/models"
	"github.com/lingxian-next/internal/repository"

	"gorm.io/gorm"
)

// StockLine 一行库存变动
type StockLine struct {
	ProductID uint
	Quantity  int
}

// StockLedger 商品库存台账：下单即扣减，取消或退款确认时归还
type StockLedger struct {
	productRepo repository.ProductRepository
}

// NewStockLedger 创建库存台账
func NewStockLedger(productRepo repository.ProductRepository) *StockLedger {
	return &StockLedger{productRepo: productRepo}
}

// Reserve 在调用方事务内扣减全部行的库存，任意一行不足则整体失败
func (l *StockLedger) Reserve(tx *gorm.DB, lines []StockLine) error {
	merged, err := mergeStockLines(lines)
	if err != nil {
		return err
	}
	if len(merged) == 0 {
		return ErrInvalidOrderItem
	}
	repo := l.productRepo.WithTx(tx)

	ids := make([]uint, 0, len(merged))
	for _, line := range merged {
		ids = append(ids, line.ProductID)
	}
	locked, err := repo.LockByIDs(ids)
	if err != nil {
		return err
	}
	if len(locked) != len(ids) {
		return ErrProductNotFound
	}

	for _, line := range merged {
		affected, err := repo.DecrementStock(line.ProductID, line.Quantity)
		if err != nil {
			return err
		}
		if affected == 0 {
			return &InsufficientStockError{ProductID: line.ProductID}
		}
	}
	return nil
}

// Release 归还库存，调用方通过状态机保证每笔订单只归还一次
func (l *StockLedger) Release(tx *gorm.DB, lines []StockLine) error {
	merged, err := mergeStockLines(lines)
	if err != nil {
		return err
	}
	repo := l.productRepo.WithTx(tx)
	for _, line := range merged {
		if _, err := repo.IncrementStock(line.ProductID, line.Quantity); err != nil {
			return err
		}
	}
	return nil
}

// StockLinesFromItems 由订单项快照生成库存行
func StockLinesFromItems(items []models.OrderItem) []StockLine {
	lines := make([]StockLine, 0, len(items))
	for _, item := range items {
		lines = append(lines, StockLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines
}

// mergeStockLines 合并同一商品并按商品 ID 升序，保证加锁顺序一致
func mergeStockLines(lines []StockLine) ([]StockLine, error) {
	index := make(map[uint]int, len(lines))
	merged := make([]StockLine, 0, len(lines))
	for _, line := range lines {
		if line.ProductID == 0 || line.Quantity <= 0 {
			return nil, ErrInvalidOrderItem
		}
		if idx, ok := index[line.ProductID]; ok {
			merged[idx].Quantity += line.Quantity
			continue
		}
		index[line.ProductID] = len(merged)
		merged = append(merged, line)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].ProductID < merged[j].ProductID
	})
	return merged, nil
}
