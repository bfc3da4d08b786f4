package menus

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Caooin/DigiGlucose-Insight/internal/bot/keyboards"
)

const MainMenuText = `🤖 血糖助手

直接用文字告诉我：
• 血糖数值，例如"今天空腹测的血糖5.2"
• 饮食、运动和用药情况
• 想了解的知识，例如"GI是什么"

⚠️ 以上建议仅供参考，不能替代专业医疗诊断。

请选择操作：`

const HelpText = `可用命令：
/start - 显示主菜单
/help - 显示本帮助
/report - 生成本周血糖周报
/reminders - 查看我的提醒
/remind HH:MM 内容 - 添加每日测血糖提醒

记录示例：
• 早上空腹血糖6.1
• 午饭后2小时测了8.3
• 晚餐吃了米饭和青菜
• 走路30分钟
• 吃药 二甲双胍 500mg

也可以直接提问，例如"餐后血糖多少正常"。`

const LogHintText = `记录血糖时请尽量说明：
1. 数值和单位（默认 mmol/L，也支持 mg/dL）
2. 测量时间：空腹、餐前、餐后几小时
例如："午饭后2小时血糖7.8"`

// SendMainMenu sends the main menu to a chat
func SendMainMenu(api Sender, chatID int64) error {
	msg := tgbotapi.NewMessage(chatID, MainMenuText)
	msg.ReplyMarkup = keyboards.MainMenu()
	_, err := api.Send(msg)
	return err
}

// SendWithBack sends text with a button back to the main menu.
func SendWithBack(api Sender, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = keyboards.BackMenu()
	_, err := api.Send(msg)
	return err
}

type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}
