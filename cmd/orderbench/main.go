package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/d60-Lab/bcc-marketplace/config"
	"github.com/d60-Lab/bcc-marketplace/internal/model"
	"github.com/d60-Lab/bcc-marketplace/internal/repository"
	"github.com/d60-Lab/bcc-marketplace/pkg/database"
)

const (
	// 测试参数
	FamilyCount     = 2000 // 下单家庭数
	OrdersPerFamily = 5    // 每个家庭订单数
	ShardCount      = 4
	ConcurrentLevel = 32
)

// BenchDuration 查询压测时长，可用 BENCH_SECONDS 覆盖
var BenchDuration = 10 * time.Second

type BenchResult struct {
	Name            string
	Duration        time.Duration
	TotalRequests   int64
	SuccessRequests int64
	FailedRequests  int64
	QPS             float64
	AvgLatency      time.Duration
	P50Latency      time.Duration
	P95Latency      time.Duration
	P99Latency      time.Duration
}

type scenario struct {
	name  string
	repo  repository.OrderRepository
	close func()
}

func main() {
	ctx := context.Background()
	if s := os.Getenv("BENCH_SECONDS"); s != "" {
		n, err := strconv.Atoi(s)
		must(err)
		BenchDuration = time.Duration(n) * time.Second
	}

	workDir, err := os.MkdirTemp("", "orderbench")
	must(err)
	defer os.RemoveAll(workDir)

	fmt.Println("===== 订单存储压测 =====")
	fmt.Printf("家庭数: %d, 每家庭订单数: %d, 总订单数: %d\n", FamilyCount, OrdersPerFamily, FamilyCount*OrdersPerFamily)
	fmt.Printf("并发数: %d, 查询时长: 每场景 %v\n\n", ConcurrentLevel, BenchDuration)

	scenarios := []scenario{
		prepareSingle(workDir),
		prepareSharded(workDir),
		prepareCached(workDir),
	}

	results := make(map[string][]*BenchResult)
	for _, sc := range scenarios {
		orders := generateTestOrders()

		fmt.Printf("===== %s - 写入订单 =====\n", sc.name)
		insert := benchInsert(ctx, sc.repo, orders, sc.name)
		printBenchResult(insert)

		fmt.Printf("\n===== %s - 按订单号查询 =====\n", sc.name)
		byID := benchQuery(ctx, sc.name, func() error {
			o := orders[rand.Intn(len(orders))]
			_, err := sc.repo.GetByOrderID(ctx, o.OrderID)
			return err
		})
		printBenchResult(byID)

		fmt.Printf("\n===== %s - 按邮箱查询最近订单 =====\n", sc.name)
		byEmail := benchQuery(ctx, sc.name, func() error {
			_, err := sc.repo.ListByEmail(ctx, familyEmail(rand.Intn(FamilyCount)), 5)
			return err
		})
		printBenchResult(byEmail)
		fmt.Println()

		results[sc.name] = []*BenchResult{insert, byID, byEmail}
		sc.close()
	}

	fmt.Println("===== 性能对比总结 =====")
	ops := []string{"写入订单", "按订单号查询", "按邮箱查询"}
	for i, op := range ops {
		fmt.Printf("\n--- %s ---\n", op)
		for _, sc := range scenarios {
			r := results[sc.name][i]
			fmt.Printf("%-8s QPS: %10.2f  P95: %v\n", sc.name, r.QPS, r.P95Latency)
		}
	}
	fmt.Println("\n✅ 压测完成！")
}

func openDB(dir, name string) *gorm.DB {
	opts := config.DatabaseConfig{}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		// postgres 下每个场景需要独立的库，这里只用于单库场景
		db, err := database.Open("postgres", dsn, opts)
		must(err)
		return db
	}
	db, err := database.Open("sqlite", filepath.Join(dir, name+".db"), opts)
	must(err)
	return db
}

func prepareSingle(dir string) scenario {
	repo := repository.NewSingleDBOrderRepository(openDB(dir, "single"))
	must(repo.InitSchema())
	return scenario{name: "单库", repo: repo, close: func() { _ = repo.Close() }}
}

func prepareSharded(dir string) scenario {
	dbs := make([]*gorm.DB, ShardCount)
	for i := range dbs {
		db, err := database.Open("sqlite", filepath.Join(dir, fmt.Sprintf("shard_%d.db", i)), config.DatabaseConfig{})
		must(err)
		dbs[i] = db
	}
	repo, err := repository.NewShardedOrderRepository(dbs)
	must(err)
	must(repo.InitSchema())
	return scenario{name: "分库", repo: repo, close: func() { _ = repo.Close() }}
}

// prepareCached 单库 + redis；未配置 REDIS_ADDR 时用进程内 miniredis
func prepareCached(dir string) scenario {
	inner := repository.NewSingleDBOrderRepository(openDB(dir, "cached"))
	must(inner.InitSchema())

	var mr *miniredis.Miniredis
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		var err error
		mr, err = miniredis.Run()
		must(err)
		addr = mr.Addr()
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	repo := repository.NewCachedOrderRepository(inner, client, 10*time.Minute)

	return scenario{name: "缓存", repo: repo, close: func() {
		c := repo.Counters()
		fmt.Printf("缓存命中: %d, 未命中: %d\n\n", c.Hits, c.Misses)
		_ = repo.Close()
		_ = client.Close()
		if mr != nil {
			mr.Close()
		}
	}}
}

// orderSeq 跨场景递增，共用一个 postgres 库时订单号也不冲突
var orderSeq int

func familyEmail(i int) string { return fmt.Sprintf("family%05d@demo.com", i) }

// generateTestOrders 生成测试订单
func generateTestOrders() []*model.Order {
	orders := make([]*model.Order, 0, FamilyCount*OrdersPerFamily)
	base := time.Now().Add(-30 * 24 * time.Hour)
	for f := 0; f < FamilyCount; f++ {
		for i := 0; i < OrdersPerFamily; i++ {
			orderSeq++
			placed := base.Add(time.Duration(rand.Intn(30*24*60)) * time.Minute)
			price := decimal.NewFromInt(int64(10 + rand.Intn(60)))
			orders = append(orders, &model.Order{
				OrderID:           fmt.Sprintf("BCC-%s-%06d", placed.Format("060102"), orderSeq),
				ContactName:       fmt.Sprintf("Family %d", f),
				ContactEmail:      familyEmail(f),
				Status:            model.OrderStatusAwaitingPayment,
				PlacedAt:          placed,
				EstimatedDelivery: placed.Add(5 * 24 * time.Hour),
				Total:             price.Mul(decimal.NewFromInt(2)),
				Items: []model.OrderItem{
					{ProductID: "praise-card-pack", Name: "Kids Praise Card Pack", Quantity: 2, UnitPrice: price},
				},
				History: []model.StatusEntry{
					{Label: model.HistoryAwaitingPayment, Timestamp: placed},
					{Label: model.HistoryOrderCreated, Timestamp: placed},
				},
			})
		}
	}
	return orders
}

// benchInsert 写入全部订单，不限时间
func benchInsert(ctx context.Context, repo repository.OrderRepository, orders []*model.Order, name string) *BenchResult {
	var (
		success, failed int64
		latencies       = make([]time.Duration, len(orders))
		wg              sync.WaitGroup
	)

	start := time.Now()
	for w := 0; w < ConcurrentLevel; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := worker; i < len(orders); i += ConcurrentLevel {
				t0 := time.Now()
				err := repo.Create(ctx, orders[i])
				latencies[i] = time.Since(t0)
				if err != nil {
					if atomic.AddInt64(&failed, 1) <= 5 {
						fmt.Printf("写入失败: %v (order_id=%s)\n", err, orders[i].OrderID)
					}
					continue
				}
				atomic.AddInt64(&success, 1)
			}
		}(w)
	}
	wg.Wait()

	return calculateResult(name, time.Since(start), success, failed, latencies)
}

// benchQuery 在 BenchDuration 内并发执行 op
func benchQuery(ctx context.Context, name string, op func() error) *BenchResult {
	var (
		success, failed int64
		latencies       []time.Duration
		mu              sync.Mutex
		wg              sync.WaitGroup
	)

	start := time.Now()
	stopAt := start.Add(BenchDuration)
	for w := 0; w < ConcurrentLevel; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]time.Duration, 0, 1024)
			for time.Now().Before(stopAt) && ctx.Err() == nil {
				t0 := time.Now()
				err := op()
				local = append(local, time.Since(t0))
				if err != nil {
					atomic.AddInt64(&failed, 1)
				} else {
					atomic.AddInt64(&success, 1)
				}
			}
			mu.Lock()
			latencies = append(latencies, local...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	return calculateResult(name, time.Since(start), success, failed, latencies)
}

// calculateResult 计算压测结果
func calculateResult(name string, duration time.Duration, success, failed int64, latencies []time.Duration) *BenchResult {
	total := success + failed
	res := &BenchResult{
		Name:            name,
		Duration:        duration,
		TotalRequests:   total,
		SuccessRequests: success,
		FailedRequests:  failed,
		QPS:             float64(total) / duration.Seconds(),
	}
	if len(latencies) == 0 {
		return res
	}

	sorted := append([]time.Duration(nil), latencies...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	var sum time.Duration
	for _, l := range sorted {
		sum += l
	}
	res.AvgLatency = sum / time.Duration(len(sorted))
	res.P50Latency = percentile(sorted, 0.50)
	res.P95Latency = percentile(sorted, 0.95)
	res.P99Latency = percentile(sorted, 0.99)
	return res
}

// percentile 计算百分位数
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	index := int(math.Ceil(float64(len(sorted))*p)) - 1
	if index < 0 {
		index = 0
	}
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}

// printBenchResult 打印压测结果
func printBenchResult(r *BenchResult) {
	fmt.Printf("名称: %s\n", r.Name)
	fmt.Printf("耗时: %v\n", r.Duration.Round(time.Millisecond))
	fmt.Printf("总请求数: %d (成功 %d, 失败 %d)\n", r.TotalRequests, r.SuccessRequests, r.FailedRequests)
	fmt.Printf("QPS: %.2f\n", r.QPS)
	fmt.Printf("平均延迟: %v\n", r.AvgLatency)
	fmt.Printf("P50/P95/P99: %v / %v / %v\n", r.P50Latency, r.P95Latency, r.P99Latency)
}

func must(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
