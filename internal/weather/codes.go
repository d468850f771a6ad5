package weather

// wmoCodes maps the WMO weather interpretation codes used by Open-Meteo to
// the descriptions shown on the dashboard
var wmoCodes = map[int]string{
	0:  "晴朗",
	1:  "大部晴朗",
	2:  "部分多云",
	3:  "阴天",
	45: "雾",
	48: "沉积雾",
	51: "小毛毛雨",
	53: "中毛毛雨",
	55: "大毛毛雨",
	61: "小雨",
	63: "中雨",
	65: "大雨",
	71: "小雪",
	73: "中雪",
	75: "大雪",
	80: "小阵雨",
	95: "雷暴",
}

const unknownCode = "未知"

// Describe returns the description of a WMO code, "未知" for nil or unlisted codes
func Describe(code *int) string {
	if code == nil {
		return unknownCode
	}
	if d, ok := wmoCodes[*code]; ok {
		return d
	}
	return unknownCode
}
