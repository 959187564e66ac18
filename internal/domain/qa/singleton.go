package qa

import (
	"context"
	"sync"
)

// LazyService 进程级共享的问答服务。
// 首个调用 Get 的请求执行构建（全量 embedding，较慢），并发的其余调用
// 阻塞等待同一次构建完成；之后所有调用拿到同一个实例，绝不二次构建。
// 构建失败的错误同样被缓存：索引构建不是请求级的瞬时故障，重试留给进程重启。
type LazyService struct {
	build func(ctx context.Context) (*Service, error)

	once sync.Once
	svc  *Service
	err  error
}

// NewLazyService 创建延迟构建的服务句柄。
func NewLazyService(build func(ctx context.Context) (*Service, error)) *LazyService {
	return &LazyService{build: build}
}

// Get 返回共享实例，必要时先构建。
func (l *LazyService) Get(ctx context.Context) (*Service, error) {
	l.once.Do(func() {
		l.svc, l.err = l.build(ctx)
	})
	return l.svc, l.err
}
