package consts

// 实时推送频道前缀
const (
	CounselUserKey   = "counsel:user:"   // 用户个人频道
	CounselThreadKey = "counsel:thread:" // 会话参与者频道
)

// CounselRoleCounselorKey 咨询师角色共享频道（仅元数据，不含消息正文）
const CounselRoleCounselorKey = "counsel:role:counselor"
