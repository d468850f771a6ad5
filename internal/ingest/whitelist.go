package ingest

import "strings"

// Provinces is the closed set of provincial-level regions accepted into the store
var Provinces = []string{
	"上海市", "云南省", "内蒙古自治区", "北京市", "吉林省", "四川省", "天津市",
	"宁夏回族自治区", "安徽省", "山东省", "山西省", "广东省", "广西壮族自治区",
	"新疆维吾尔自治区", "江苏省", "江西省", "河北省", "河南省", "浙江省", "海南省",
	"湖北省", "湖南省", "甘肃省", "福建省", "西藏自治区", "贵州省", "辽宁省",
	"重庆市", "陕西省", "青海省", "黑龙江省",
}

// Basins is the closed set of river basins accepted into the store
var Basins = []string{
	"长江流域", "滇池流域", "珠江流域", "西南诸河", "松花江流域", "西北诸河",
	"黄河流域", "海河流域", "淮河流域", "辽河流域", "太湖流域", "巢湖流域",
	"浙闽片河流",
}

// Whitelist restricts which province and basin values may be stored
type Whitelist struct {
	provinces map[string]struct{}
	basins    map[string]struct{}
}

// NewWhitelist builds a whitelist from explicit value sets
func NewWhitelist(provinces, basins []string) *Whitelist {
	w := &Whitelist{
		provinces: make(map[string]struct{}, len(provinces)),
		basins:    make(map[string]struct{}, len(basins)),
	}
	for _, p := range provinces {
		w.provinces[p] = struct{}{}
	}
	for _, b := range basins {
		w.basins[b] = struct{}{}
	}
	return w
}

// DefaultWhitelist covers the national surface-water monitoring network
func DefaultWhitelist() *Whitelist {
	return NewWhitelist(Provinces, Basins)
}

// Allows reports whether both values belong to the whitelist
func (w *Whitelist) Allows(province, basin string) bool {
	_, okP := w.provinces[strings.TrimSpace(province)]
	_, okB := w.basins[strings.TrimSpace(basin)]
	return okP && okB
}
