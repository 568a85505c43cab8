package repository

import (
	"context"

	"gorm.io/gorm"
)

// 分页默认值
const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// statusCompleted 已结束会话的状态值
const statusCompleted = "completed"

// BaseRepository 基础仓储接口
type BaseRepository interface {
	GetDB() *gorm.DB
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Pagination 分页参数，Total 由查询回填
type Pagination struct {
	Page     int   `json:"page"`
	PageSize int   `json:"page_size"`
	Total    int64 `json:"total"`
}

// NewPagination 创建分页参数，非法值取默认，页大小不超过 MaxPageSize
func NewPagination(page, pageSize int) *Pagination {
	if page < 1 {
		page = 1
	}
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	return &Pagination{Page: page, PageSize: pageSize}
}

// Offset 计算偏移量
func (p *Pagination) Offset() int {
	return (p.Page - 1) * p.PageSize
}

// HasMore 之后是否还有数据
func (p *Pagination) HasMore() bool {
	return int64(p.Page*p.PageSize) < p.Total
}

// Paginate 分页查询
func Paginate(p *Pagination) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Offset(p.Offset()).Limit(p.PageSize)
	}
}

// CompletedBy 已结束的会话，column 为带表别名的状态列
func CompletedBy(column string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where(column+" = ?", statusCompleted)
	}
}

// BaseRepo 基础仓储实现
type BaseRepo struct {
	db *gorm.DB
}

// NewBaseRepo 创建基础仓储
func NewBaseRepo(db *gorm.DB) *BaseRepo {
	return &BaseRepo{db: db}
}

// GetDB 获取数据库实例
func (r *BaseRepo) GetDB() *gorm.DB {
	return r.db
}

// conn 绑定请求上下文的连接
func (r *BaseRepo) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// Transaction 执行事务
func (r *BaseRepo) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.conn(ctx).Transaction(fn)
}
